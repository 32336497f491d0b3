package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/services"
)

type InvoiceController struct {
	invoiceService services.InvoiceService
}

func NewInvoiceController(svc services.InvoiceService) *InvoiceController {
	return &InvoiceController{invoiceService: svc}
}

// Generate handles POST /invoices
func (ic *InvoiceController) Generate(ctx *gin.Context) {
	var req models.GenerateInvoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	inv, svcErr := ic.invoiceService.Generate(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"invoice": inv})
}

// Get handles GET /invoices/:id
func (ic *InvoiceController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	inv, svcErr := ic.invoiceService.Get(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// Send handles POST /invoices/:id/send
func (ic *InvoiceController) Send(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	inv, svcErr := ic.invoiceService.Send(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// UpdateStatus handles PUT /invoices/:id/status
func (ic *InvoiceController) UpdateStatus(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateInvoiceStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	inv, svcErr := ic.invoiceService.UpdateStatus(ctx.Request.Context(), id, req.Status)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoice": inv})
}
