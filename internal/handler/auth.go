package handler

import (
	"net/http"

	"pharmapos/internal/dto"
	"pharmapos/internal/middleware"
	"pharmapos/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Register godoc
// @Summary Register a medical store owner
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "Owner account"
// @Success 201 {object} dto.Envelope{data=dto.AuthResponse}
// @Failure 400 {object} apierror.Response
// @Failure 409 {object} apierror.Response
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "User registered successfully", resp)
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.Envelope{data=dto.AuthResponse}
// @Failure 401 {object} apierror.Response
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", resp)
}

// Profile godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Envelope{data=dto.UserResponse}
// @Failure 401 {object} apierror.Response
// @Router /api/auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	resp, err := h.svc.Profile(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"user": resp})
}

// Logout is stateless: the client drops its token.
func (h *AuthHandler) Logout(c *gin.Context) {
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

// ── Users Handler ─────────────────────────────────────────────────────────────

type UsersHandler struct{ svc service.AuthService }

func NewUsersHandler(svc service.AuthService) *UsersHandler {
	return &UsersHandler{svc: svc}
}

// List godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "ADMIN | MEDICAL_OWNER | CASHIER"
// @Param isActive query bool false "Active flag"
// @Success 200 {object} dto.Envelope
// @Router /api/users [get]
func (h *UsersHandler) List(c *gin.Context) {
	var filter dto.UserFilter
	if !bindQuery(c, &filter) {
		return
	}
	users, err := h.svc.ListUsers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"users": users})
}

// ListCashiers godoc
// @Summary List cashiers (store-scoped for owners)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Envelope
// @Router /api/users/cashiers [get]
func (h *UsersHandler) ListCashiers(c *gin.Context) {
	users, err := h.svc.ListCashiers(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"cashiers": users})
}

// Create godoc
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateUserRequest true "User"
// @Success 201 {object} dto.Envelope{data=dto.UserResponse}
// @Failure 403 {object} apierror.Response
// @Failure 409 {object} apierror.Response
// @Router /api/users [post]
func (h *UsersHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	user, err := h.svc.CreateUser(c.Request.Context(), middleware.CallerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "User created successfully", gin.H{"user": user})
}

// Get godoc
// @Summary Get a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.Envelope{data=dto.UserResponse}
// @Failure 404 {object} apierror.Response
// @Router /api/users/{id} [get]
func (h *UsersHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	user, err := h.svc.GetUser(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"user": user})
}

// Update godoc
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param body body dto.UpdateUserRequest true "Changes"
// @Success 200 {object} dto.Envelope{data=dto.UserResponse}
// @Router /api/users/{id} [put]
func (h *UsersHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.UpdateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	user, err := h.svc.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User updated successfully", gin.H{"user": user})
}

// Deactivate godoc
// @Summary Deactivate a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.Envelope
// @Router /api/users/{id} [delete]
func (h *UsersHandler) Deactivate(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.DeactivateUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User deactivated successfully", nil)
}
