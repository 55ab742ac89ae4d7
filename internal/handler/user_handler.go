package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/pkg/response"
)

type accountDirectory interface {
	Search(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, req models.UserUpdateRequest, role models.UserRole) (*models.User, error)
	Update(ctx context.Context, id string, req models.UserUpdateRequest) (*models.User, error)
	Ban(ctx context.Context, id string) error
	Unban(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// UserHandler exposes admin account management.
type UserHandler struct {
	directory accountDirectory
}

// NewUserHandler constructs the handler.
func NewUserHandler(directory accountDirectory) *UserHandler {
	return &UserHandler{directory: directory}
}

// List godoc
// @Summary Search users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param username query string false "Username contains"
// @Param email query string false "Email contains"
// @Param organization query string false "Organization contains"
// @Param role query string false "Role"
// @Param email_verified query bool false "Email verified"
// @Param enabled query bool false "Enabled"
// @Param banned query bool false "Banned"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := models.UserFilter{
		Username:     c.Query("username"),
		Email:        c.Query("email"),
		Organization: c.Query("organization"),
	}
	filter.Page, filter.Size = pageParams(c)
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		r := models.UserRole(strings.ToUpper(role))
		filter.Role = &r
	}

	bools := []struct {
		key  string
		dest **bool
	}{
		{"email_verified", &filter.EmailVerified},
		{"enabled", &filter.Enabled},
		{"banned", &filter.Banned},
	}
	for _, b := range bools {
		value, err := optionalBool(c, b.key)
		if err != nil {
			filter.Malformed = append(filter.Malformed, b.key)
			continue
		}
		*b.dest = value
	}

	users, pagination, err := h.directory.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.directory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Create user
// @Description Admin-created accounts start verified with the default password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role (default STUDENT)"
// @Param payload body models.UserUpdateRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req models.UserUpdateRequest
	if !bindJSON(c, &req, "invalid user payload") {
		return
	}
	role := models.RoleStudent
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role = models.UserRole(strings.ToUpper(raw))
	}

	user, err := h.directory.Create(c.Request.Context(), req, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body models.UserUpdateRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req models.UserUpdateRequest
	if !bindJSON(c, &req, "invalid user payload") {
		return
	}
	user, err := h.directory.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Ban godoc
// @Summary Ban user
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/ban [put]
func (h *UserHandler) Ban(c *gin.Context) {
	if err := h.directory.Ban(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unban godoc
// @Summary Unban user
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/unban [put]
func (h *UserHandler) Unban(c *gin.Context) {
	if err := h.directory.Unban(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete user
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.directory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
