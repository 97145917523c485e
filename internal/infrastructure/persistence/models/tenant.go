package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/catalogsync/backend/internal/domain/tenant"
)

// TenantModel is the persistence model for the Tenant domain entity.
type TenantModel struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key"`
	Name   string    `gorm:"type:varchar(255);not null"`
	Active bool      `gorm:"not null;index"`

	SourceBaseURL     string `gorm:"type:varchar(512);not null"`
	SourceCredentials []byte `gorm:"type:bytea"`
	SinkBaseURL       string `gorm:"type:varchar(512);not null"`
	SinkCredentials   []byte `gorm:"type:bytea"`

	DefaultTaxRate        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:19"`
	PreferredLanguage     string          `gorm:"type:varchar(8);not null;default:'de'"`
	FallbackLanguagesJSON string          `gorm:"type:text;column:fallback_languages"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant entity.
func (m *TenantModel) ToDomain() *tenant.Tenant {
	t := &tenant.Tenant{
		ID:     m.ID,
		Name:   m.Name,
		Active: m.Active,
		Source: tenant.Connection{
			BaseURL:           m.SourceBaseURL,
			SealedCredentials: m.SourceCredentials,
		},
		Sink: tenant.Connection{
			BaseURL:           m.SinkBaseURL,
			SealedCredentials: m.SinkCredentials,
		},
		DefaultTaxRate:    m.DefaultTaxRate,
		PreferredLanguage: m.PreferredLanguage,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}

	if m.FallbackLanguagesJSON != "" {
		var langs []string
		if err := json.Unmarshal([]byte(m.FallbackLanguagesJSON), &langs); err == nil {
			t.FallbackLanguages = langs
		}
	}

	return t
}

// FromDomain populates the persistence model from a domain Tenant entity.
func (m *TenantModel) FromDomain(t *tenant.Tenant) {
	m.ID = t.ID
	m.Name = t.Name
	m.Active = t.Active
	m.SourceBaseURL = t.Source.BaseURL
	m.SourceCredentials = t.Source.SealedCredentials
	m.SinkBaseURL = t.Sink.BaseURL
	m.SinkCredentials = t.Sink.SealedCredentials
	m.DefaultTaxRate = t.DefaultTaxRate
	m.PreferredLanguage = t.PreferredLanguage
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt

	if len(t.FallbackLanguages) > 0 {
		if jsonBytes, err := json.Marshal(t.FallbackLanguages); err == nil {
			m.FallbackLanguagesJSON = string(jsonBytes)
		}
	} else {
		m.FallbackLanguagesJSON = "[]"
	}
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant entity.
func TenantModelFromDomain(t *tenant.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}
