package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	queue     syncdomain.Queue
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(queue syncdomain.Queue) *SystemHandler {
	return &SystemHandler{
		queue:     queue,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns basic process information.
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "Catalog Sync API",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping is a simple liveness endpoint.
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// QueueStatsResponse represents job queue statistics
type QueueStatsResponse struct {
	Depth     int  `json:"depth"`
	InFlight  int  `json:"in_flight"`
	Workers   int  `json:"workers"`
	IsRunning bool `json:"is_running"`
}

// GetQueueStats reports the job queue's current depth and worker state.
func (h *SystemHandler) GetQueueStats(c *gin.Context) {
	stats := h.queue.Stats()
	h.Success(c, QueueStatsResponse{
		Depth:     stats.Depth,
		InFlight:  stats.InFlight,
		Workers:   stats.Workers,
		IsRunning: stats.IsRunning,
	})
}
