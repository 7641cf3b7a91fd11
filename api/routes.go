package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/voxscript/api/document"
	"github.com/killallgit/voxscript/api/health"
	"github.com/killallgit/voxscript/api/jobs"
	"github.com/killallgit/voxscript/api/regions"
	"github.com/killallgit/voxscript/api/sources"
	"github.com/killallgit/voxscript/api/status"
	"github.com/killallgit/voxscript/api/transcription"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/api/version"
	"github.com/killallgit/voxscript/api/ws"
	_ "github.com/killallgit/voxscript/docs/swagger"
)

// RegisterRoutes registers all API routes. A nil limiter disables rate limiting.
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, limiter gin.HandlerFunc) error {
	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/docs/index.html")
	})
	engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// API v1 routes
	v1 := engine.Group("/api/v1")

	// The status socket is long-lived and exempt from rate limiting
	ws.RegisterRoutes(v1, deps)

	limited := v1.Group("")
	if limiter != nil {
		limited.Use(limiter)
	}

	status.RegisterRoutes(limited, deps)

	sourceGroup := limited.Group("/sources")
	sources.RegisterRoutes(sourceGroup, deps)
	regions.RegisterRoutes(sourceGroup, deps)
	transcription.RegisterRoutes(sourceGroup, deps)

	document.RegisterRoutes(limited.Group("/document"), deps)

	// Job history needs the database
	if deps.JobHistory != nil {
		jobs.RegisterRoutes(limited.Group("/jobs"), deps)
	}

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
