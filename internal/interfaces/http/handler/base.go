package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/catalogsync/backend/internal/domain/mapping"
	"github.com/catalogsync/backend/internal/domain/tenant"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response; used when a job is queued rather
// than executed inline.
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain errors to HTTP responses. Sentinel errors map
// to specific codes; anything unrecognized is reported as internal without
// leaking its message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, syncdomain.ErrJobNotFound),
		errors.Is(err, syncdomain.ErrScheduleNotFound),
		errors.Is(err, mapping.ErrMappingNotFound):
		h.ErrorWithCode(c, dto.ErrCodeNotFound, err.Error())

	case errors.Is(err, syncdomain.ErrScheduleExists):
		h.ErrorWithCode(c, dto.ErrCodeAlreadyExists, err.Error())

	case errors.Is(err, syncdomain.ErrDuplicateJob):
		h.ErrorWithCode(c, dto.ErrCodeDuplicateJob, err.Error())

	case errors.Is(err, tenant.ErrTenantInactive):
		h.ErrorWithCode(c, dto.ErrCodeTenantInactive, err.Error())

	case errors.Is(err, syncdomain.ErrConfigSyncRequired):
		h.ErrorWithCode(c, dto.ErrCodeConfigSyncRequired, err.Error())

	case errors.Is(err, mapping.ErrInvalidKind),
		errors.Is(err, mapping.ErrInvalidSourceID),
		errors.Is(err, mapping.ErrInvalidSinkID),
		errors.Is(err, syncdomain.ErrInvalidSyncType),
		errors.Is(err, syncdomain.ErrInvalidDirection),
		errors.Is(err, syncdomain.ErrInvalidCronExpression),
		errors.Is(err, tenant.ErrInvalidConnection):
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())

	case syncdomain.IsValidation(err):
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())

	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}
