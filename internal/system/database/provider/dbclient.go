/*
 * Copyright (c) 2025, MediLink Health Systems.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package provider provides functionality for managing database connections and clients.
package provider

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/log"
)

// DBClientInterface defines the interface for database operations used by the stores.
type DBClientInterface interface {
	Query(query dbmodel.DBQueryInterface, args ...interface{}) ([]map[string]interface{}, error)
	Execute(query dbmodel.DBQueryInterface, args ...interface{}) (int64, error)
	BeginTx() (dbmodel.TxInterface, error)
}

// dbClient is the sqlx-backed implementation of DBClientInterface.
type dbClient struct {
	db     *sqlx.DB
	dbType string
}

// NewDBClient creates a new database client for the given database type.
func NewDBClient(db *sqlx.DB, dbType string) DBClientInterface {
	return &dbClient{
		db:     db,
		dbType: dbType,
	}
}

// Query executes a query and returns the results as a slice of maps keyed by column name.
func (c *dbClient) Query(query dbmodel.DBQueryInterface, args ...interface{}) ([]map[string]interface{}, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "DBClient"))

	rows, err := c.db.Queryx(query.GetQuery(c.dbType), args...)
	if err != nil {
		logger.Error("Failed to execute query", log.String("queryID", query.GetID()), log.Error(err))
		return nil, fmt.Errorf("failed to execute query %s: %w", query.GetID(), err)
	}
	defer rows.Close()

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			logger.Error("Failed to scan row", log.String("queryID", query.GetID()), log.Error(err))
			return nil, fmt.Errorf("failed to scan row for query %s: %w", query.GetID(), err)
		}
		normalizeRow(row)
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed for query %s: %w", query.GetID(), err)
	}

	return results, nil
}

// Execute runs a statement and returns the number of affected rows.
func (c *dbClient) Execute(query dbmodel.DBQueryInterface, args ...interface{}) (int64, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "DBClient"))

	result, err := c.db.Exec(query.GetQuery(c.dbType), args...)
	if err != nil {
		logger.Error("Failed to execute statement", log.String("queryID", query.GetID()), log.Error(err))
		return 0, fmt.Errorf("failed to execute statement %s: %w", query.GetID(), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows for %s: %w", query.GetID(), err)
	}
	return rowsAffected, nil
}

// BeginTx starts a new database transaction.
func (c *dbClient) BeginTx() (dbmodel.TxInterface, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return dbmodel.NewTx(tx), nil
}

// normalizeRow converts driver-specific []byte column values to string so that
// the store row mappers can rely on plain Go types.
func normalizeRow(row map[string]interface{}) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}
