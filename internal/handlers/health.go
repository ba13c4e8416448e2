package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devonelson50/Monarch/internal/scheduler"
)

func HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "ok",
		"message":   "Monarch worker is running",
		"scheduler": scheduler.Status(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
