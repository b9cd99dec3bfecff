package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/energizer-project/craftlure/internal/util"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "craftlure",
		"version": util.AppVersion,
	})
}

// handleStats returns the in-memory connection totals.
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

// handleInfo returns host metadata and the decoy listener address.
func (s *Server) handleInfo(c *gin.Context) {
	sysInfo := util.GetSystemInfo()

	c.JSON(http.StatusOK, gin.H{
		"version":         util.AppVersion,
		"listen_address":  s.listenAddr,
		"hostname":        sysInfo.Hostname,
		"platform":        sysInfo.Platform,
		"os":              sysInfo.OS,
		"architecture":    sysInfo.Architecture,
		"cpu_cores":       sysInfo.CPUCores,
		"total_memory_mb": sysInfo.TotalMemory,
	})
}
