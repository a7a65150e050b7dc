package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felix-phuctran/base-be-go/internal/pkg"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- test helpers ---

type stubModule struct {
	registered bool
}

func (m *stubModule) RegisterRoutes(api *gin.RouterGroup) {
	m.registered = true
	api.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
}

type stubParser struct{}

func (stubParser) Parse(string) (uuid.UUID, error) {
	return uuid.Nil, errors.New("invalid token")
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

// --- RegisterRoutes validation ---

func TestRegisterRoutes_Validation(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		name    string
		router  *gin.Engine
		deps    *RouteDeps
		wantErr string
	}{
		{
			name:    "nil router",
			router:  nil,
			deps:    &RouteDeps{Modules: []Module{&stubModule{}}, DB: db, TokenParser: stubParser{}},
			wantErr: "router is nil",
		},
		{
			name:    "nil deps",
			router:  gin.New(),
			deps:    nil,
			wantErr: "route dependencies are nil",
		},
		{
			name:    "no modules",
			router:  gin.New(),
			deps:    &RouteDeps{DB: db, TokenParser: stubParser{}},
			wantErr: "at least one module is required",
		},
		{
			name:    "nil token parser",
			router:  gin.New(),
			deps:    &RouteDeps{Modules: []Module{&stubModule{}}, DB: db},
			wantErr: "token parser is required",
		},
		{
			name:    "nil module entry",
			router:  gin.New(),
			deps:    &RouteDeps{Modules: []Module{nil}, DB: db, TokenParser: stubParser{}},
			wantErr: "module at index 0 is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RegisterRoutes(tt.router, tt.deps)
			if err == nil {
				t.Fatal("RegisterRoutes() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("RegisterRoutes() error = %q, want contains %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRegisterRoutes_InvokesModules(t *testing.T) {
	r := gin.New()
	mod := &stubModule{}

	err := RegisterRoutes(r, &RouteDeps{
		Modules:     []Module{mod},
		DB:          openTestDB(t),
		TokenParser: stubParser{},
		PublicPaths: []string{"/api/v1/ping"},
	})
	if err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}
	if !mod.registered {
		t.Fatal("expected module RegisterRoutes to be called")
	}

	// Public module route is reachable without a token.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /api/v1/ping: status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- health endpoint ---

func TestHealth_OK(t *testing.T) {
	r := gin.New()
	r.GET("/health", healthHandler(openTestDB(t), nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json decode error: %v", err)
	}
	if resp.Status != "ok" || resp.Components["database"] != "ok" {
		t.Errorf("health = %+v; want ok", resp)
	}
	if _, ok := resp.Components["cache"]; ok {
		t.Error("cache component must be absent when redis is not configured")
	}
}

func TestHealth_Degraded_WhenDatabaseDown(t *testing.T) {
	db := openTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	_ = sqlDB.Close()

	r := gin.New()
	r.GET("/health", healthHandler(db, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json decode error: %v", err)
	}
	if resp.Status != "degraded" || resp.Components["database"] != "error" {
		t.Errorf("health = %+v; want degraded database", resp)
	}
}

func TestHealth_Degraded_WhenDatabaseNil(t *testing.T) {
	r := gin.New()
	r.GET("/health", healthHandler(nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// --- no-route handler ---

func TestNoRoute_ReturnsJSONEnvelope(t *testing.T) {
	r := gin.New()
	r.NoRoute(noRouteHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var resp pkg.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json decode error: %v", err)
	}
	if resp.Code != http.StatusNotFound || resp.Message != "not found" {
		t.Errorf("resp = %+v; want 404 not found envelope", resp)
	}
}
