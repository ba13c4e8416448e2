package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/devonelson50/Monarch/internal/handlers"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/apps", handlers.ListApps)
		api.GET("/incidents", handlers.ListIncidents)

		simulator := api.Group("/simulator")
		{
			simulator.POST("/status", handlers.SetSimulatorStatus)
			simulator.DELETE("/status/:app_id", handlers.ClearSimulatorStatus)
		}
	}

	return r
}
