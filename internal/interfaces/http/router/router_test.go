package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) {
	c.Status(http.StatusOK)
}

func TestRouterRegistersUnderVersionPrefix(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("sync", "/sync")
	group.POST("/trigger", ok)
	group.GET("/jobs/:id", ok)

	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync/trigger", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/jobs/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sync/trigger", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterAppliesMiddleware(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var order []string
	r.Use(func(c *gin.Context) {
		order = append(order, "router")
		c.Next()
	})

	group := NewDomainGroup("mappings", "/mappings")
	group.Use(func(c *gin.Context) {
		order = append(order, "group")
		c.Next()
	})
	group.GET("/entities", func(c *gin.Context) {
		order = append(order, "handler")
		c.Status(http.StatusOK)
	})

	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/mappings/entities", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"router", "group", "handler"}, order)
}

func TestDomainGroupMetadata(t *testing.T) {
	group := NewDomainGroup("tenants", "/tenants")
	assert.Equal(t, "tenants", group.Name())
	assert.Equal(t, "/tenants", group.Prefix())
}
