package handler

import (
	"net/http"

	"pharmapos/internal/dto"
	"pharmapos/internal/middleware"
	"pharmapos/internal/service"

	"github.com/gin-gonic/gin"
)

type DistributorsHandler struct{ svc service.DistributorService }

func NewDistributorsHandler(svc service.DistributorService) *DistributorsHandler {
	return &DistributorsHandler{svc: svc}
}

// Create godoc
// @Summary Add a distributor to the store ledger
// @Tags distributors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateDistributorRequest true "Distributor"
// @Success 201 {object} dto.Envelope{data=dto.DistributorResponse}
// @Router /api/distributors [post]
func (h *DistributorsHandler) Create(c *gin.Context) {
	var req dto.CreateDistributorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	d, err := h.svc.Create(c.Request.Context(), middleware.CallerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Distributor saved successfully", gin.H{"distributor": d})
}

// List godoc
// @Summary List distributors by total purchase
// @Tags distributors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Envelope
// @Router /api/distributors [get]
func (h *DistributorsHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"distributors": rows})
}
