package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/catalogsync/backend/internal/domain/tenant"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"

	appsync "github.com/catalogsync/backend/internal/application/sync"
)

// TenantHandler handles tenant management HTTP requests
type TenantHandler struct {
	BaseHandler
	tenants tenant.Repository
	box     tenant.CredentialBox
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants tenant.Repository, box tenant.CredentialBox) *TenantHandler {
	return &TenantHandler{tenants: tenants, box: box}
}

// Create registers a tenant. Connection secrets are sealed before the tenant
// row is written; they never leave this handler in plaintext.
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	source, err := h.sealConnection(req.Source.BaseURL, appsync.ConnectionSecrets{
		Username: req.Source.Username,
		Password: req.Source.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sink, err := h.sealConnection(req.Sink.BaseURL, appsync.ConnectionSecrets{
		ClientID:     req.Sink.ClientID,
		ClientSecret: req.Sink.ClientSecret,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	t, err := tenant.NewTenant(req.Name, source, sink)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if req.DefaultTaxRate != nil {
		t.DefaultTaxRate = decimal.NewFromFloat(*req.DefaultTaxRate)
	}
	if req.PreferredLanguage != "" {
		t.PreferredLanguage = req.PreferredLanguage
	}
	t.FallbackLanguages = req.FallbackLanguages

	if err := h.tenants.Save(c.Request.Context(), t); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toTenantResponse(t))
}

// GetByID returns one tenant.
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	t, err := h.tenants.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(t))
}

// List returns all active tenants.
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.tenants.FindActive(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]TenantResponse, 0, len(tenants))
	for i := range tenants {
		responses = append(responses, toTenantResponse(&tenants[i]))
	}
	h.Success(c, responses)
}

// Update changes a tenant's name, transformation preferences or connections.
// Supplying a connection replaces its credentials wholesale.
func (h *TenantHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, middleware.BindingErrorMessage(err))
		return
	}

	ctx := c.Request.Context()
	t, err := h.tenants.FindByID(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.DefaultTaxRate != nil {
		t.DefaultTaxRate = decimal.NewFromFloat(*req.DefaultTaxRate)
	}
	if req.PreferredLanguage != nil {
		t.PreferredLanguage = *req.PreferredLanguage
	}
	if req.FallbackLanguages != nil {
		t.FallbackLanguages = req.FallbackLanguages
	}
	if req.Source != nil {
		conn, err := h.sealConnection(req.Source.BaseURL, appsync.ConnectionSecrets{
			Username: req.Source.Username,
			Password: req.Source.Password,
		})
		if err != nil {
			h.HandleError(c, err)
			return
		}
		t.Source = conn
	}
	if req.Sink != nil {
		conn, err := h.sealConnection(req.Sink.BaseURL, appsync.ConnectionSecrets{
			ClientID:     req.Sink.ClientID,
			ClientSecret: req.Sink.ClientSecret,
		})
		if err != nil {
			h.HandleError(c, err)
			return
		}
		t.Sink = conn
	}

	if err := h.tenants.Save(ctx, t); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(t))
}

// Activate re-activates a tenant; its schedules resume firing.
func (h *TenantHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate stops all syncing for a tenant without deleting its data.
func (h *TenantHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *TenantHandler) setActive(c *gin.Context, active bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	ctx := c.Request.Context()
	t, err := h.tenants.FindByID(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if active {
		t.Activate()
	} else {
		t.Deactivate()
	}

	if err := h.tenants.Save(ctx, t); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(t))
}

func (h *TenantHandler) sealConnection(baseURL string, secrets appsync.ConnectionSecrets) (tenant.Connection, error) {
	sealed, err := appsync.SealConnectionSecrets(h.box, secrets)
	if err != nil {
		return tenant.Connection{}, err
	}
	return tenant.Connection{BaseURL: baseURL, SealedCredentials: sealed}, nil
}
