package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/domain/mapping"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"

	appsync "github.com/catalogsync/backend/internal/application/sync"
)

// MappingHandler handles identity mapping management
type MappingHandler struct {
	BaseHandler
	mappingService *appsync.MappingService
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(mappingService *appsync.MappingService) *MappingHandler {
	return &MappingHandler{mappingService: mappingService}
}

// EntityMappingResponse represents an entity mapping in API responses
type EntityMappingResponse struct {
	TenantID     uuid.UUID `json:"tenant_id"`
	Kind         string    `json:"kind"`
	SourceID     string    `json:"source_id"`
	SinkID       string    `json:"sink_id"`
	MappingType  string    `json:"mapping_type"`
	LastAction   string    `json:"last_action"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

func toEntityMappingResponse(m *mapping.EntityMapping) EntityMappingResponse {
	return EntityMappingResponse{
		TenantID:     m.TenantID,
		Kind:         string(m.Kind),
		SourceID:     m.SourceID,
		SinkID:       m.SinkID,
		MappingType:  string(m.MappingType),
		LastAction:   string(m.LastAction),
		LastSyncedAt: m.LastSyncedAt,
	}
}

// ProductMappingResponse represents a product mapping in API responses
type ProductMappingResponse struct {
	TenantID          uuid.UUID `json:"tenant_id"`
	SourceItemID      string    `json:"source_item_id"`
	SourceVariationID string    `json:"source_variation_id"`
	SinkProductID     string    `json:"sink_product_id"`
	IsParent          bool      `json:"is_parent"`
	SinkParentID      string    `json:"sink_parent_id,omitempty"`
	MappingType       string    `json:"mapping_type"`
	LastAction        string    `json:"last_action"`
	LastSyncedAt      time.Time `json:"last_synced_at"`
}

func toProductMappingResponse(m *mapping.ProductMapping) ProductMappingResponse {
	return ProductMappingResponse{
		TenantID:          m.TenantID,
		SourceItemID:      m.SourceItemID,
		SourceVariationID: m.SourceVariationID,
		SinkProductID:     m.SinkProductID,
		IsParent:          m.IsParent,
		SinkParentID:      m.SinkParentID,
		MappingType:       string(m.MappingType),
		LastAction:        string(m.LastAction),
		LastSyncedAt:      m.LastSyncedAt,
	}
}

// MappingListQuery represents query parameters for listing entity mappings
type MappingListQuery struct {
	TenantID string `form:"tenant_id" binding:"required,uuid"`
	Kind     string `form:"kind" binding:"required"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListEntities returns one kind's mapping rows for a tenant.
func (h *MappingHandler) ListEntities(c *gin.Context) {
	var query MappingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	tenantID, err := uuid.Parse(query.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	mappings, err := h.mappingService.ListEntityMappings(c.Request.Context(), tenantID, mapping.Kind(query.Kind), query.Offset, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]EntityMappingResponse, 0, len(mappings))
	for i := range mappings {
		responses = append(responses, toEntityMappingResponse(&mappings[i]))
	}
	h.Success(c, responses)
}

// CreateMappingRequest represents the request body for a manual mapping
type CreateMappingRequest struct {
	TenantID string `json:"tenant_id" binding:"required,uuid"`
	Kind     string `json:"kind" binding:"required"`
	SourceID string `json:"source_id" binding:"required"`
	SinkID   string `json:"sink_id" binding:"required"`
}

// CreateEntity records a MANUAL mapping; automated syncs will keep its sink
// id and only refresh its sync timestamp.
func (h *MappingHandler) CreateEntity(c *gin.Context) {
	var req CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	m, err := h.mappingService.CreateManualMapping(c.Request.Context(), tenantID, mapping.Kind(req.Kind), req.SourceID, req.SinkID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toEntityMappingResponse(m))
}

// DeleteEntity removes one mapping row; the next sync of that entity will
// recreate it as AUTO.
func (h *MappingHandler) DeleteEntity(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	kind := mapping.Kind(c.Param("kind"))
	sourceID := c.Param("source_id")

	if err := h.mappingService.DeleteEntityMapping(c.Request.Context(), tenantID, kind, sourceID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// EntityStatsResponse represents per-kind mapping counts
type EntityStatsResponse struct {
	Kind   string `json:"kind"`
	Total  int64  `json:"total"`
	Manual int64  `json:"manual"`
	Auto   int64  `json:"auto"`
}

// EntityStats returns per-kind mapping counts for a tenant.
func (h *MappingHandler) EntityStats(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	stats, err := h.mappingService.EntityStats(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]EntityStatsResponse, 0, len(stats))
	for _, s := range stats {
		responses = append(responses, EntityStatsResponse{
			Kind:   string(s.Kind),
			Total:  s.Total,
			Manual: s.Manual,
			Auto:   s.Auto,
		})
	}
	h.Success(c, responses)
}

// ProductMappingListQuery represents query parameters for listing product mappings
type ProductMappingListQuery struct {
	TenantID string `form:"tenant_id" binding:"required,uuid"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListProducts returns a tenant's product mapping rows.
func (h *MappingHandler) ListProducts(c *gin.Context) {
	var query ProductMappingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	tenantID, err := uuid.Parse(query.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	mappings, err := h.mappingService.ListProductMappings(c.Request.Context(), tenantID, query.Offset, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]ProductMappingResponse, 0, len(mappings))
	for i := range mappings {
		responses = append(responses, toProductMappingResponse(&mappings[i]))
	}
	h.Success(c, responses)
}

// DeleteProduct removes one product mapping row by source variation id.
func (h *MappingHandler) DeleteProduct(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	if err := h.mappingService.DeleteProductMapping(c.Request.Context(), tenantID, c.Param("variation_id")); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ProductStatsResponse represents product mapping counts
type ProductStatsResponse struct {
	Total  int64 `json:"total"`
	Manual int64 `json:"manual"`
	Auto   int64 `json:"auto"`
}

// ProductStats returns product mapping counts for a tenant.
func (h *MappingHandler) ProductStats(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	stats, err := h.mappingService.ProductStats(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ProductStatsResponse{
		Total:  stats.Total,
		Manual: stats.Manual,
		Auto:   stats.Auto,
	})
}
