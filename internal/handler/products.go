package handler

import (
	"net/http"

	"pharmapos/internal/dto"
	"pharmapos/internal/middleware"
	"pharmapos/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// Create godoc
// @Summary Register a stock batch
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateProductRequest true "Batch"
// @Success 201 {object} dto.Envelope{data=dto.ProductResponse}
// @Failure 400 {object} apierror.Response
// @Router /api/products [post]
func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	product, err := h.svc.Create(c.Request.Context(), middleware.CallerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Product added successfully", gin.H{"product": product})
}

// List godoc
// @Summary List the store's batches, newest first
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Envelope
// @Router /api/products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	products, err := h.svc.List(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"products": products})
}
