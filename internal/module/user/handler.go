package user

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/felix-phuctran/base-be-go/internal/domain"
	"github.com/felix-phuctran/base-be-go/internal/pkg"
	"github.com/felix-phuctran/base-be-go/internal/storage"
)

// UserHandler handles REST API requests for the user resource.
type UserHandler struct {
	svc      domain.UserService
	uploader storage.Uploader
}

// NewUserHandler creates a new UserHandler with the given service and
// uploader.
func NewUserHandler(svc domain.UserService, uploader storage.Uploader) *UserHandler {
	return &UserHandler{svc: svc, uploader: uploader}
}

// Create handles POST /api/v1/users.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), req.input())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, pkg.Response{
		Code:    http.StatusCreated,
		Message: "success",
		Data:    user,
	})
}

// Get handles GET /api/v1/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// List handles GET /api/v1/users. Filtering, ordering, includes, joins, and
// pagination all come from query parameters; the response carries the total
// match count alongside the page of results.
func (h *UserHandler) List(c *gin.Context) {
	params, err := pkg.ParseListParams(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	result, err := h.svc.ListUsers(c.Request.Context(), params)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Update handles PUT /api/v1/users/:id. The body is a field→value map; every
// present field is written, including explicit nulls.
func (h *UserHandler) Update(c *gin.Context) {
	h.applyChanges(c, h.svc.UpdateUser)
}

// Patch handles PATCH /api/v1/users/:id with partial-update semantics.
func (h *UserHandler) Patch(c *gin.Context) {
	h.applyChanges(c, h.svc.PatchUser)
}

func (h *UserHandler) applyChanges(c *gin.Context, apply func(ctx context.Context, id uuid.UUID, changes map[string]any) (*domain.User, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	changes, ok := bindChanges(c, true)
	if !ok {
		return
	}

	user, err := apply(c.Request.Context(), id, changes)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// Remove handles DELETE /api/v1/users/:id (soft delete).
func (h *UserHandler) Remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.svc.RemoveUser(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// Restore handles POST /api/v1/users/:id/restore.
func (h *UserHandler) Restore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.svc.RestoreUser(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// HardDelete handles DELETE /api/v1/users/:id/hard.
func (h *UserHandler) HardDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, nil)
}

// Clone handles POST /api/v1/users/:id/clone. The body is an optional
// field→value override map.
func (h *UserHandler) Clone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	overrides, ok := bindChanges(c, false)
	if !ok {
		return
	}

	user, err := h.svc.CloneUser(c.Request.Context(), id, overrides)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, pkg.Response{
		Code:    http.StatusCreated,
		Message: "success",
		Data:    user,
	})
}

// BatchCreate handles POST /api/v1/users/batch.
func (h *UserHandler) BatchCreate(c *gin.Context) {
	var req BatchCreateRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	inputs := make([]domain.CreateUserInput, len(req.Users))
	for i, u := range req.Users {
		inputs[i] = u.input()
	}

	users, err := h.svc.BatchCreateUsers(c.Request.Context(), inputs)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, pkg.Response{
		Code:    http.StatusCreated,
		Message: "success",
		Data:    users,
	})
}

// UploadAvatar handles POST /api/v1/users/:id/avatar (multipart form, field
// "file").
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "file is required", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "cannot read uploaded file", err))
		return
	}
	defer f.Close()

	url, err := h.uploader.Upload(c.Request.Context(), "avatars", f,
		header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	user, err := h.svc.SetAvatar(c.Request.Context(), id, url)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, user)
}

// parseID reads the :id path parameter; an invalid UUID is a validation
// error response.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("invalid id %q", c.Param("id")), err))
		return uuid.Nil, false
	}
	return id, true
}

// bindChanges decodes a JSON object body into a change map. When required is
// false, an empty body is allowed and yields nil.
func bindChanges(c *gin.Context, required bool) (map[string]any, bool) {
	var changes map[string]any
	if err := c.ShouldBindJSON(&changes); err != nil {
		if !required && c.Request.ContentLength == 0 {
			return nil, true
		}
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "request body must be a JSON object", err))
		return nil, false
	}
	if required && len(changes) == 0 {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "request body cannot be empty", nil))
		return nil, false
	}
	return changes, true
}
