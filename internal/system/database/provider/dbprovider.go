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

package provider

import (
	"sync"

	"github.com/medilink/health-exchange-api/internal/system/database"
	"github.com/medilink/health-exchange-api/internal/system/log"
)

// DBProviderInterface defines the interface for getting database clients.
type DBProviderInterface interface {
	GetDBClient() (DBClientInterface, error)
}

// dbProvider is the implementation of DBProviderInterface.
type dbProvider struct {
	client DBClientInterface
	mutex  sync.RWMutex
	db     *database.DB
}

var (
	instance *dbProvider
	once     sync.Once
)

// InitDBProvider initializes the singleton instance of DBProvider with the database connection.
func InitDBProvider(db *database.DB) {
	once.Do(func() {
		instance = &dbProvider{
			db: db,
		}
		instance.initializeClient()
	})
}

// GetDBProvider returns the instance of DBProvider.
func GetDBProvider() DBProviderInterface {
	if instance == nil {
		panic("DBProvider not initialized. Call InitDBProvider first.")
	}
	return instance
}

// GetDBClient returns the shared database client. The client manages its own
// connection pool, callers must not close it.
func (d *dbProvider) GetDBClient() (DBClientInterface, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.client, nil
}

func (d *dbProvider) initializeClient() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "DBProvider"))

	if d.db == nil {
		logger.Fatal("Database connection is nil")
		return
	}

	d.client = NewDBClient(d.db.DB, "mysql")
	logger.Debug("DB client initialized")
}
