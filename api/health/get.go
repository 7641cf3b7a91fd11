package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// Get handles health check requests
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK

		// Add database status
		if deps != nil && deps.DB != nil {
			db := getDatabaseStatus(deps)
			if db["status"] == "unhealthy" {
				response["status"] = "unhealthy"
				code = http.StatusServiceUnavailable
			}
			response["database"] = db
		} else {
			response["database"] = gin.H{"status": "not configured"}
		}

		if deps != nil && deps.Coordinator != nil {
			response["pipeline"] = gin.H{
				"ready":  deps.Coordinator.IsReady(),
				"status": deps.Coordinator.Status(),
			}
		}

		c.JSON(code, response)
	}
}

// getDatabaseStatus returns the database connection status
func getDatabaseStatus(deps *types.Dependencies) gin.H {
	if deps.DB == nil || deps.DB.DB == nil {
		return gin.H{"status": "not configured"}
	}

	if err := deps.DB.HealthCheck(); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}

	return gin.H{"status": "healthy"}
}
