package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/domain/tenant"
)

// =====================
// Tenant Request DTOs
// =====================

// SourceConnectionRequest carries a source-side endpoint and credentials
type SourceConnectionRequest struct {
	BaseURL  string `json:"base_url" binding:"required,url"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SinkConnectionRequest carries a sink-side endpoint and credentials
type SinkConnectionRequest struct {
	BaseURL      string `json:"base_url" binding:"required,url"`
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

// CreateTenantRequest represents the request body for creating a tenant
type CreateTenantRequest struct {
	Name              string                  `json:"name" binding:"required,min=1,max=200"`
	Source            SourceConnectionRequest `json:"source" binding:"required"`
	Sink              SinkConnectionRequest   `json:"sink" binding:"required"`
	DefaultTaxRate    *float64                `json:"default_tax_rate" binding:"omitempty,min=0,max=100"`
	PreferredLanguage string                  `json:"preferred_language" binding:"omitempty,max=10"`
	FallbackLanguages []string                `json:"fallback_languages" binding:"omitempty,dive,max=10"`
}

// UpdateTenantRequest represents the request body for updating a tenant
type UpdateTenantRequest struct {
	Name              *string                  `json:"name" binding:"omitempty,min=1,max=200"`
	Source            *SourceConnectionRequest `json:"source" binding:"omitempty"`
	Sink              *SinkConnectionRequest   `json:"sink" binding:"omitempty"`
	DefaultTaxRate    *float64                 `json:"default_tax_rate" binding:"omitempty,min=0,max=100"`
	PreferredLanguage *string                  `json:"preferred_language" binding:"omitempty,max=10"`
	FallbackLanguages []string                 `json:"fallback_languages" binding:"omitempty,dive,max=10"`
}

// =====================
// Tenant Response DTOs
// =====================

// ConnectionResponse exposes a connection's endpoint only; sealed credentials
// are never returned.
type ConnectionResponse struct {
	BaseURL string `json:"base_url"`
}

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID                uuid.UUID          `json:"id"`
	Name              string             `json:"name"`
	Active            bool               `json:"active"`
	Source            ConnectionResponse `json:"source"`
	Sink              ConnectionResponse `json:"sink"`
	DefaultTaxRate    string             `json:"default_tax_rate"`
	PreferredLanguage string             `json:"preferred_language"`
	FallbackLanguages []string           `json:"fallback_languages,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func toTenantResponse(t *tenant.Tenant) TenantResponse {
	return TenantResponse{
		ID:                t.ID,
		Name:              t.Name,
		Active:            t.Active,
		Source:            ConnectionResponse{BaseURL: t.Source.BaseURL},
		Sink:              ConnectionResponse{BaseURL: t.Sink.BaseURL},
		DefaultTaxRate:    t.DefaultTaxRate.String(),
		PreferredLanguage: t.PreferredLanguage,
		FallbackLanguages: t.FallbackLanguages,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}
