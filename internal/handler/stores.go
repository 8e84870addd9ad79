package handler

import (
	"net/http"

	"pharmapos/internal/dto"
	"pharmapos/internal/middleware"
	"pharmapos/internal/service"

	"github.com/gin-gonic/gin"
)

type StoresHandler struct{ svc service.StoreService }

func NewStoresHandler(svc service.StoreService) *StoresHandler { return &StoresHandler{svc: svc} }

// UpsertProfile godoc
// @Summary Create or update the owner's store
// @Tags stores
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.StoreProfileRequest true "Store profile"
// @Success 200 {object} dto.Envelope{data=dto.StoreResponse}
// @Failure 409 {object} apierror.Response
// @Router /api/stores/profile [post]
func (h *StoresHandler) UpsertProfile(c *gin.Context) {
	var req dto.StoreProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	store, err := h.svc.UpsertProfile(c.Request.Context(), middleware.CallerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Store profile saved successfully", gin.H{"store": store})
}

// GetProfile godoc
// @Summary The owner's store, or null
// @Tags stores
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Envelope
// @Router /api/stores/profile [get]
func (h *StoresHandler) GetProfile(c *gin.Context) {
	store, err := h.svc.GetProfile(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"store": store})
}

// List godoc
// @Summary All stores with sales aggregates
// @Tags stores
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Envelope
// @Router /api/stores [get]
func (h *StoresHandler) List(c *gin.Context) {
	stores, err := h.svc.ListWithSales(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"stores": stores})
}
