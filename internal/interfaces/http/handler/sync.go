package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/interfaces/http/middleware"

	appsync "github.com/catalogsync/backend/internal/application/sync"
	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// SyncHandler handles manual sync triggers and job status lookups
type SyncHandler struct {
	BaseHandler
	jobService *appsync.JobService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(jobService *appsync.JobService) *SyncHandler {
	return &SyncHandler{jobService: jobService}
}

// TriggerSyncRequest represents the request body for manually triggering a sync
type TriggerSyncRequest struct {
	TenantID string `json:"tenant_id" binding:"required,uuid"`
	SyncType string `json:"sync_type" binding:"required,oneof=CONFIG STOCK PRODUCT_DELTA FULL_PRODUCT"`
	Priority int    `json:"priority" binding:"omitempty,min=0,max=100"`
}

// JobResponse represents a sync job in API responses
type JobResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	SyncType    string     `json:"sync_type"`
	Direction   string     `json:"direction"`
	Status      string     `json:"status"`
	ScheduleID  *uuid.UUID `json:"schedule_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toJobResponse(job *syncdomain.SyncJob) JobResponse {
	return JobResponse{
		ID:          job.ID,
		TenantID:    job.TenantID,
		SyncType:    string(job.SyncType),
		Direction:   string(job.Direction),
		Status:      string(job.Status),
		ScheduleID:  job.ScheduleID,
		Error:       job.Error,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		CreatedAt:   job.CreatedAt,
	}
}

// Trigger enqueues an out-of-schedule sync for a tenant. The job runs
// asynchronously; the response carries the job id to poll.
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	job, err := h.jobService.TriggerManual(
		c.Request.Context(),
		tenantID,
		syncdomain.SyncType(req.SyncType),
		syncdomain.SyncDirectionSourceToSink,
		req.Priority,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, toJobResponse(job))
}

// GetJob returns one job by id.
func (h *SyncHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.jobService.GetJob(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toJobResponse(job))
}

// JobListQuery represents query parameters for listing jobs
type JobListQuery struct {
	TenantID string `form:"tenant_id" binding:"required,uuid"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListJobs returns a tenant's most recent jobs, newest first.
func (h *SyncHandler) ListJobs(c *gin.Context) {
	var query JobListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}
	if query.Limit == 0 {
		query.Limit = 50
	}

	tenantID, err := uuid.Parse(query.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	jobs, err := h.jobService.ListJobs(c.Request.Context(), tenantID, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		responses = append(responses, toJobResponse(&jobs[i]))
	}
	h.Success(c, responses)
}
