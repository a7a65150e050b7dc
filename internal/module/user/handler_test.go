package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/felix-phuctran/base-be-go/internal/pkg"
	"github.com/felix-phuctran/base-be-go/internal/storage"
)

// setupAPIRouter wires a full handler stack (sqlite repository, real
// service) into a gin engine for end-to-end handler tests.
func setupAPIRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _ := setupService(t)
	h := NewUserHandler(svc, storage.Disabled{})

	r := gin.New()
	NewModule(h).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createUserHTTP(t *testing.T, r *gin.Engine, name, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"display_name":%q,"email":%q,"password":"supersecret"}`, name, email)
	w := doJSON(t, r, http.MethodPost, "/api/v1/users", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: status %d body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp.Data.ID
}

func TestUserHandler_CreateAndGet(t *testing.T) {
	r := setupAPIRouter(t)

	id := createUserHTTP(t, r, "Alice", "alice@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/v1/users/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password_hash") {
		t.Error("password hash must never appear in responses")
	}
}

func TestUserHandler_Create_ValidationError(t *testing.T) {
	r := setupAPIRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", `{"display_name":"A"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp pkg.ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := resp.Errors["email"]; !ok {
		t.Errorf("expected field error for email, got %v", resp.Errors)
	}
}

func TestUserHandler_Create_DuplicateEmail(t *testing.T) {
	r := setupAPIRouter(t)

	createUserHTTP(t, r, "Alice", "dup@example.com")
	body := `{"display_name":"Bob","email":"dup@example.com","password":"supersecret"}`
	w := doJSON(t, r, http.MethodPost, "/api/v1/users", body)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestUserHandler_Get_InvalidAndUnknownID(t *testing.T) {
	r := setupAPIRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid uuid: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users/0e4e7a36-4be1-4a43-8c64-ca9a24e68a7e", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id: expected 404, got %d", w.Code)
	}
}

func TestUserHandler_List_WithFilter(t *testing.T) {
	r := setupAPIRouter(t)

	createUserHTTP(t, r, "Alice Smith", "alice@example.com")
	createUserHTTP(t, r, "Bob Jones", "bob@example.com")

	filter := url.QueryEscape(`{"displayName__like":"Alice"}`)
	w := doJSON(t, r, http.MethodGet, "/api/v1/users?filter="+filter+"&orderBy=-createdAt", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Total   int64            `json:"total"`
			Results []map[string]any `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.Total != 1 || len(resp.Data.Results) != 1 {
		t.Errorf("total=%d results=%d; want 1/1", resp.Data.Total, len(resp.Data.Results))
	}
}

func TestUserHandler_List_BadFilter(t *testing.T) {
	r := setupAPIRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users?filter="+url.QueryEscape(`{broken`), "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed filter, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users?filter="+url.QueryEscape(`{"nope__gte":1}`), "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", w.Code)
	}
}

func TestUserHandler_PatchAndUpdate(t *testing.T) {
	r := setupAPIRouter(t)
	id := createUserHTTP(t, r, "Alice", "alice@example.com")

	w := doJSON(t, r, http.MethodPatch, "/api/v1/users/"+id, `{"display_name":"Alice Updated"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Alice Updated") {
		t.Error("patch response missing updated name")
	}

	w = doJSON(t, r, http.MethodPut, "/api/v1/users/"+id, `{"phone_number":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put: status %d body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPut, "/api/v1/users/"+id, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty put body: expected 400, got %d", w.Code)
	}
}

func TestUserHandler_SoftDeleteRestoreLifecycle(t *testing.T) {
	r := setupAPIRouter(t)
	id := createUserHTTP(t, r, "Alice", "alice@example.com")

	w := doJSON(t, r, http.MethodDelete, "/api/v1/users/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("remove: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("soft-deleted user must 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/users/"+id+"/restore", "")
	if w.Code != http.StatusOK {
		t.Fatalf("restore: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users/"+id, "")
	if w.Code != http.StatusOK {
		t.Errorf("restored user must be visible, got %d", w.Code)
	}
}

func TestUserHandler_HardDelete(t *testing.T) {
	r := setupAPIRouter(t)
	id := createUserHTTP(t, r, "Alice", "alice@example.com")

	w := doJSON(t, r, http.MethodDelete, "/api/v1/users/"+id+"/hard", "")
	if w.Code != http.StatusOK {
		t.Fatalf("hard delete: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/users/"+id+"/restore", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("restore after hard delete must 404, got %d", w.Code)
	}
}

func TestUserHandler_Clone(t *testing.T) {
	r := setupAPIRouter(t)
	id := createUserHTTP(t, r, "Alice", "alice@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/v1/users/"+id+"/clone", `{"email":"copy@example.com"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("clone: status %d body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "copy@example.com") {
		t.Error("clone response missing overridden email")
	}
}

func TestUserHandler_BatchCreate_Atomic(t *testing.T) {
	r := setupAPIRouter(t)

	body := `{"users":[
		{"display_name":"Alice","email":"a@example.com","password":"supersecret"},
		{"display_name":"Bob","email":"a@example.com","password":"supersecret"}
	]}`
	w := doJSON(t, r, http.MethodPost, "/api/v1/users/batch", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for failed batch, got %d body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users", "")
	var resp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.Total != 0 {
		t.Errorf("Total=%d; want 0 after rolled-back batch", resp.Data.Total)
	}
}

func TestUserHandler_AvatarUpload_StorageDisabled(t *testing.T) {
	r := setupAPIRouter(t)
	id := createUserHTTP(t, r, "Alice", "alice@example.com")

	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+id+"/avatar", &buf)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// No file part at all: validation error before storage is touched.
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
