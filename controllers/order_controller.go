package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/services"
)

// OrderController handles admin order management and fulfilment.
type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(svc services.OrderService) *OrderController {
	return &OrderController{orderService: svc}
}

// List handles GET /orders
func (oc *OrderController) List(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	filter := models.OrderFilter{
		Status:        models.OrderStatus(ctx.Query("status")),
		PaymentStatus: models.PaymentStatus(ctx.Query("payment_status")),
		Search:        ctx.Query("search"),
	}

	orders, total, svcErr := oc.orderService.List(ctx.Request.Context(), filter, page, limit)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, paginated("orders", orders, total, page, limit))
}

// Create handles POST /orders
func (oc *OrderController) Create(ctx *gin.Context) {
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	order, svcErr := oc.orderService.Create(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"order": order})
}

// Get handles GET /orders/:id
func (oc *OrderController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	order, svcErr := oc.orderService.Get(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// Update handles PUT /orders/:id
func (oc *OrderController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	req.Version = expectedVersion(ctx, req.Version)

	order, svcErr := oc.orderService.Update(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// Refund handles POST /orders/:id/refund
func (oc *OrderController) Refund(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.RefundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	res, svcErr := oc.orderService.Refund(ctx.Request.Context(), id, &req, idempotencyKey(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// ShippingRates handles POST /orders/:id/shipping/rates
func (oc *OrderController) ShippingRates(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	res, svcErr := oc.orderService.RequestShippingRates(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// PurchaseLabel handles POST /orders/:id/shipping/label
func (oc *OrderController) PurchaseLabel(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.PurchaseLabelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	res, svcErr := oc.orderService.PurchaseLabel(ctx.Request.Context(), id, &req, idempotencyKey(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, res)
}

// VoidLabel handles DELETE /orders/:id/shipping/label
func (oc *OrderController) VoidLabel(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	res, svcErr := oc.orderService.VoidLabel(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
