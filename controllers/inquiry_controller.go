package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kylerivers/47-industries-admin/middleware"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/services"
)

// InquiryController serves the admin inquiry pipeline and the public
// submission endpoint.
type InquiryController struct {
	inquiryService services.InquiryService
	invoiceService services.InvoiceService
}

func NewInquiryController(inquiries services.InquiryService, invoices services.InvoiceService) *InquiryController {
	return &InquiryController{inquiryService: inquiries, invoiceService: invoices}
}

// Submit handles the public POST /api/inquiries
func (ic *InquiryController) Submit(ctx *gin.Context) {
	var req models.CreateInquiryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	inquiry, svcErr := ic.inquiryService.Create(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"id": inquiry.ID, "inquiry_number": inquiry.InquiryNumber})
}

// List handles GET /inquiries
func (ic *InquiryController) List(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	filter := models.InquiryFilter{
		Status: models.InquiryStatus(ctx.Query("status")),
		Search: ctx.Query("search"),
	}
	inquiries, total, svcErr := ic.inquiryService.List(ctx.Request.Context(), filter, page, limit)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, paginated("inquiries", inquiries, total, page, limit))
}

// Get handles GET /inquiries/:id
func (ic *InquiryController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	inquiry, svcErr := ic.inquiryService.Get(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"inquiry": inquiry})
}

// Update handles PUT /inquiries/:id
func (ic *InquiryController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateInquiryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	req.Version = expectedVersion(ctx, req.Version)

	inquiry, svcErr := ic.inquiryService.Update(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"inquiry": inquiry})
}

// Delete handles DELETE /inquiries/:id
func (ic *InquiryController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if svcErr := ic.inquiryService.Delete(ctx.Request.Context(), id); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Decline handles POST /inquiries/:id/decline
func (ic *InquiryController) Decline(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.DeclineRequest
	// the reason is optional, so an empty body is fine
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			respondBindError(ctx, err)
			return
		}
	}
	inquiry, svcErr := ic.inquiryService.Decline(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"inquiry": inquiry})
}

// Thread handles GET /inquiries/:id/messages
func (ic *InquiryController) Thread(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	thread, svcErr := ic.inquiryService.Thread(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": thread})
}

// Reply handles POST /inquiries/:id/messages
func (ic *InquiryController) Reply(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.ReplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	msg, svcErr := ic.inquiryService.Reply(ctx.Request.Context(), id, &req, middleware.Actor(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": msg})
}

// SuggestQuote handles GET /inquiries/:id/quote-suggestion
func (ic *InquiryController) SuggestQuote(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	suggestion, svcErr := ic.inquiryService.SuggestQuote(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, suggestion)
}

// SendQuote handles POST /inquiries/:id/quote
func (ic *InquiryController) SendQuote(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.SendQuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	inquiry, svcErr := ic.inquiryService.SendQuote(ctx.Request.Context(), id, &req, middleware.Actor(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"inquiry": inquiry})
}

// Invoices handles GET /inquiries/:id/invoices
func (ic *InquiryController) Invoices(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	invoices, svcErr := ic.invoiceService.ListByInquiry(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoices": invoices})
}
