package user

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestUserModuleRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")

	mod := NewModule(&UserHandler{})
	mod.RegisterRoutes(api)

	expected := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/users"},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPost, "/api/v1/users/batch"},
		{http.MethodGet, "/api/v1/users/:id"},
		{http.MethodPut, "/api/v1/users/:id"},
		{http.MethodPatch, "/api/v1/users/:id"},
		{http.MethodDelete, "/api/v1/users/:id"},
		{http.MethodPost, "/api/v1/users/:id/restore"},
		{http.MethodDelete, "/api/v1/users/:id/hard"},
		{http.MethodPost, "/api/v1/users/:id/clone"},
		{http.MethodPost, "/api/v1/users/:id/avatar"},
	}

	registered := make(map[string]bool)
	for _, ri := range r.Routes() {
		registered[ri.Method+":"+ri.Path] = true
	}

	for _, exp := range expected {
		if !registered[exp.method+":"+exp.path] {
			t.Errorf("expected route %s %s to be registered", exp.method, exp.path)
		}
	}
}

func TestNewModule_PanicsOnNilHandler(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewModule() expected panic for nil handler, got none")
		}
	}()

	_ = NewModule(nil)
}
