package router

import (
	"github.com/gin-gonic/gin"

	"github.com/medilink/health-exchange-api/internal/handlers"
	"github.com/medilink/health-exchange-api/internal/record"
	"github.com/medilink/health-exchange-api/internal/system/config"
	"github.com/medilink/health-exchange-api/internal/system/middleware"
)

// SetupRouter configures the gin engine serving the record access API. The
// engine is mounted under the API base path by the service manager, so the
// routes here are registered without the prefix.
func SetupRouter(recordService record.RecordService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationIDMiddleware())

	cfg := config.Get()
	if cfg != nil && cfg.CORS.Enabled {
		router.Use(middleware.CORSMiddleware(middleware.CORSOptions{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   "GET, POST, DELETE, OPTIONS",
			AllowedHeaders:   "Content-Type, Authorization, X-Actor-ID, X-Actor-Kind, X-Correlation-ID",
			AllowCredentials: cfg.CORS.AllowCredentials,
		}))
	}

	recordHandler := handlers.NewRecordHandler(recordService)

	records := router.Group("/records")
	{
		records.GET("", recordHandler.ListRecords)
		records.GET("/:recordId", recordHandler.GetRecord)
		records.GET("/:recordId/access-log", recordHandler.GetAccessLog)
		records.POST("/:recordId/archive", recordHandler.ArchiveRecord)
		records.POST("/:recordId/restore", recordHandler.RestoreRecord)
		records.DELETE("/:recordId", recordHandler.DeleteRecord)
	}

	return router
}
