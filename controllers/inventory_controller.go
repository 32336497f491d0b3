package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kylerivers/47-industries-admin/middleware"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/services"
)

type InventoryController struct {
	inventoryService services.InventoryService
}

func NewInventoryController(svc services.InventoryService) *InventoryController {
	return &InventoryController{inventoryService: svc}
}

// Adjust handles POST /inventory/:productId/adjust
func (ic *InventoryController) Adjust(ctx *gin.Context) {
	productID, ok := parseID(ctx, "productId")
	if !ok {
		return
	}
	var req models.AdjustStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	change, svcErr := ic.inventoryService.AdjustStock(ctx.Request.Context(), productID, &req, middleware.Actor(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, change)
}

// Movements handles GET /inventory/:productId/movements
func (ic *InventoryController) Movements(ctx *gin.Context) {
	productID, ok := parseID(ctx, "productId")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	movements, svcErr := ic.inventoryService.ListMovements(ctx.Request.Context(), productID, limit)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"movements": movements})
}

// Alerts handles GET /inventory/alerts
func (ic *InventoryController) Alerts(ctx *gin.Context) {
	unresolved := ctx.DefaultQuery("resolved", "false") != "true"
	alerts, svcErr := ic.inventoryService.ListAlerts(ctx.Request.Context(), unresolved)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// ResolveAlert handles POST /inventory/alerts/:id/resolve
func (ic *InventoryController) ResolveAlert(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	alert, svcErr := ic.inventoryService.ResolveAlert(ctx.Request.Context(), id, middleware.Actor(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"alert": alert})
}
