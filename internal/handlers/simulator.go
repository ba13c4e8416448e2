package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devonelson50/Monarch/internal/scheduler"
)

type SetStatusRequest struct {
	AppID  string `json:"app_id" binding:"required"`
	Status string `json:"status" binding:"required"` // "Operational", "Degraded", "Down"
}

// SetSimulatorStatus pins a simulated app to a fixed status so an incident
// can be driven through its whole lifecycle by hand.
func SetSimulatorStatus(c *gin.Context) {
	sim := scheduler.Simulator()

	if sim == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No simulator source is scheduled"})
		return
	}

	var req SetStatusRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_id and status are required"})
		return
	}

	if err := sim.SetStatus(req.AppID, req.Status); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"app_id": req.AppID, "status": req.Status})
}

// ClearSimulatorStatus releases a pinned app back to random drift.
func ClearSimulatorStatus(c *gin.Context) {
	sim := scheduler.Simulator()

	if sim == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No simulator source is scheduled"})
		return
	}

	appID := c.Param("app_id")

	if appID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_id is required"})
		return
	}

	sim.ClearStatus(appID)

	c.JSON(http.StatusOK, gin.H{"app_id": appID})
}
