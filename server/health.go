package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck answers liveness probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
