package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// ScheduleHandler handles sync schedule management
type ScheduleHandler struct {
	BaseHandler
	schedules syncdomain.SyncScheduleRepository
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(schedules syncdomain.SyncScheduleRepository) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// CreateScheduleRequest represents the request body for creating a schedule
type CreateScheduleRequest struct {
	TenantID       string `json:"tenant_id" binding:"required,uuid"`
	SyncType       string `json:"sync_type" binding:"required,oneof=CONFIG STOCK PRODUCT_DELTA FULL_PRODUCT"`
	CronExpression string `json:"cron_expression" binding:"required"`
	Priority       int    `json:"priority" binding:"omitempty,min=0,max=100"`
}

// UpdateScheduleRequest represents the request body for updating a schedule
type UpdateScheduleRequest struct {
	CronExpression *string `json:"cron_expression" binding:"omitempty"`
	Priority       *int    `json:"priority" binding:"omitempty,min=0,max=100"`
}

// ScheduleResponse represents a schedule in API responses
type ScheduleResponse struct {
	ID             uuid.UUID  `json:"id"`
	TenantID       uuid.UUID  `json:"tenant_id"`
	SyncType       string     `json:"sync_type"`
	Direction      string     `json:"direction"`
	CronExpression string     `json:"cron_expression"`
	Priority       int        `json:"priority"`
	Enabled        bool       `json:"enabled"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toScheduleResponse(s *syncdomain.SyncSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:             s.ID,
		TenantID:       s.TenantID,
		SyncType:       string(s.SyncType),
		Direction:      string(s.Direction),
		CronExpression: s.CronExpression,
		Priority:       s.Priority,
		Enabled:        s.Enabled,
		LastRunAt:      s.LastRunAt,
		NextRunAt:      s.NextRunAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// Create registers a recurring sync. One schedule per
// (tenant, syncType, direction).
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	if err := scheduler.ValidateCron(req.CronExpression); err != nil {
		h.HandleError(c, syncdomain.ErrInvalidCronExpression)
		return
	}

	ctx := c.Request.Context()
	syncType := syncdomain.SyncType(req.SyncType)
	direction := syncdomain.SyncDirectionSourceToSink

	_, err = h.schedules.FindByTenantTypeDirection(ctx, tenantID, syncType, direction)
	if err == nil {
		h.HandleError(c, syncdomain.ErrScheduleExists)
		return
	}
	if !errors.Is(err, syncdomain.ErrScheduleNotFound) {
		h.HandleError(c, err)
		return
	}

	schedule, err := syncdomain.NewSyncSchedule(tenantID, syncType, direction, req.CronExpression, req.Priority)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	schedule.AdvanceNextRun(scheduler.NextRun(req.CronExpression, time.Now()))

	if err := h.schedules.Save(ctx, schedule); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toScheduleResponse(schedule))
}

// GetByID returns one schedule.
func (h *ScheduleHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule ID")
		return
	}

	schedule, err := h.schedules.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toScheduleResponse(schedule))
}

// ScheduleListQuery represents query parameters for listing schedules
type ScheduleListQuery struct {
	TenantID string `form:"tenant_id" binding:"required,uuid"`
}

// List returns a tenant's schedules.
func (h *ScheduleHandler) List(c *gin.Context) {
	var query ScheduleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	tenantID, err := uuid.Parse(query.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	schedules, err := h.schedules.FindByTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		responses = append(responses, toScheduleResponse(&schedules[i]))
	}
	h.Success(c, responses)
}

// Update changes a schedule's cron expression and/or priority. A new cron
// expression recomputes the next run.
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule ID")
		return
	}

	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	ctx := c.Request.Context()
	schedule, err := h.schedules.FindByID(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if req.CronExpression != nil {
		if err := scheduler.ValidateCron(*req.CronExpression); err != nil {
			h.HandleError(c, syncdomain.ErrInvalidCronExpression)
			return
		}
		schedule.CronExpression = *req.CronExpression
		schedule.AdvanceNextRun(scheduler.NextRun(*req.CronExpression, time.Now()))
	}
	if req.Priority != nil {
		schedule.Priority = *req.Priority
		schedule.UpdatedAt = time.Now()
	}

	if err := h.schedules.Save(ctx, schedule); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toScheduleResponse(schedule))
}

// Delete removes a schedule.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule ID")
		return
	}

	if err := h.schedules.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Enable re-enables a schedule.
func (h *ScheduleHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

// Disable stops a schedule from firing; its next-run pointer is kept.
func (h *ScheduleHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *ScheduleHandler) setEnabled(c *gin.Context, enabled bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid schedule ID")
		return
	}

	ctx := c.Request.Context()
	schedule, err := h.schedules.FindByID(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if enabled {
		schedule.Enable()
	} else {
		schedule.Disable()
	}

	if err := h.schedules.Save(ctx, schedule); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toScheduleResponse(schedule))
}
