package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrTenantNotFound is returned when a tenant does not exist.
	ErrTenantNotFound = errors.New("tenant: not found")

	// ErrTenantInactive is returned when an operation targets a deactivated
	// tenant.
	ErrTenantInactive = errors.New("tenant: inactive")

	// ErrInvalidConnection is returned for a connection without a base URL.
	ErrInvalidConnection = errors.New("tenant: invalid connection")
)

// Connection is one side's endpoint plus sealed credentials. The sealed bytes
// are opaque here; the credential box in the infrastructure layer opens them
// when the scheduler builds a job payload.
type Connection struct {
	BaseURL           string
	SealedCredentials []byte
}

// Validate checks the connection is usable.
func (c Connection) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConnection
	}
	return nil
}

// Tenant is one isolated customer of the sync service with its own source and
// sink connections and transformation preferences.
type Tenant struct {
	ID     uuid.UUID
	Name   string
	Active bool

	Source Connection
	Sink   Connection

	// DefaultTaxRate (percent) derives net prices from gross when the source
	// record carries no net amount.
	DefaultTaxRate decimal.Decimal

	// PreferredLanguage and FallbackLanguages drive the translation selection
	// chain in the transformer.
	PreferredLanguage string
	FallbackLanguages []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenant creates an active tenant.
func NewTenant(name string, source, sink Connection) (*Tenant, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if err := sink.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Tenant{
		ID:                uuid.New(),
		Name:              name,
		Active:            true,
		Source:            source,
		Sink:              sink,
		DefaultTaxRate:    decimal.NewFromInt(19),
		PreferredLanguage: "de",
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Activate marks the tenant active.
func (t *Tenant) Activate() {
	t.Active = true
	t.UpdatedAt = time.Now()
}

// Deactivate marks the tenant inactive; its schedules stop firing.
func (t *Tenant) Deactivate() {
	t.Active = false
	t.UpdatedAt = time.Now()
}

// LanguageChain returns the ordered language preference list.
func (t *Tenant) LanguageChain() []string {
	chain := make([]string, 0, len(t.FallbackLanguages)+1)
	if t.PreferredLanguage != "" {
		chain = append(chain, t.PreferredLanguage)
	}
	chain = append(chain, t.FallbackLanguages...)
	return chain
}

// Repository persists tenants.
type Repository interface {
	// Save creates or updates a tenant.
	Save(ctx context.Context, t *Tenant) error

	// FindByID finds a tenant by id.
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindActive lists all active tenants.
	FindActive(ctx context.Context) ([]Tenant, error)
}

// CredentialBox seals and opens connection credentials. Implemented in the
// infrastructure layer with an AEAD over a service-level key.
type CredentialBox interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}
