package handler

import (
	"fmt"
	"net/http"

	"pharmapos/internal/dto"
	"pharmapos/internal/middleware"
	"pharmapos/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// Create godoc
// @Summary      Create a sale
// @Description  Atomically checks and decrements stock for every cart line, records the sale and its items, and attributes it to the caller.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateSaleRequest true "Cart"
// @Success      201  {object} dto.Envelope{data=dto.SaleResponse}
// @Failure      400  {object} apierror.Response
// @Failure      403  {object} apierror.Response
// @Failure      500  {object} apierror.Response
// @Router       /api/sales [post]
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sale, err := h.svc.CreateSale(c.Request.Context(), middleware.CallerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Sale created successfully", gin.H{"sale": sale})
}

// List godoc
// @Summary      List sales
// @Description  Cashiers see their own sales, owners their store's, admins without a store everything.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page (1-based)"
// @Param        limit query int false "Page size (max 200)"
// @Success      200  {object} dto.Envelope{data=dto.SaleListResponse}
// @Router       /api/sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	list, err := h.svc.ListSales(c.Request.Context(), middleware.CallerID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, list)
}

// Invoice godoc
// @Summary      Download the invoice PDF of a sale
// @Tags         sales
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id path string true "Sale ID"
// @Success      200 {file} binary
// @Failure      404 {object} apierror.Response
// @Router       /api/sales/{id}/invoice [get]
func (h *SalesHandler) Invoice(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	invoiceNo, pdf, err := h.svc.InvoicePDF(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, invoiceNo))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
