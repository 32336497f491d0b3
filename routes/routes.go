package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kylerivers/47-industries-admin/controllers"
)

// Controllers bundles every handler the router mounts.
type Controllers struct {
	Orders    *controllers.OrderController
	Inquiries *controllers.InquiryController
	Invoices  *controllers.InvoiceController
	Inventory *controllers.InventoryController
	Products  *controllers.ProductController
	Webhooks  *controllers.WebhookController
}

// RegisterRoutes mounts the public endpoints and the admin API. adminAuth
// guards /api/admin; idempotency runs after it so replays are per admin
// route only.
func RegisterRoutes(r *gin.Engine, c Controllers, adminAuth, idempotency gin.HandlerFunc) {
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "admin-service"})
	})

	// Public: contact and project forms, gateway callbacks
	r.POST("/api/inquiries", c.Inquiries.Submit)
	r.POST("/webhooks/stripe", c.Webhooks.Stripe)

	admin := r.Group("/api/admin")
	admin.Use(adminAuth)
	if idempotency != nil {
		admin.Use(idempotency)
	}

	orders := admin.Group("/orders")
	{
		orders.GET("", c.Orders.List)
		orders.POST("", c.Orders.Create)
		orders.GET("/:id", c.Orders.Get)
		orders.PUT("/:id", c.Orders.Update)
		orders.POST("/:id/refund", c.Orders.Refund)
		orders.POST("/:id/shipping/rates", c.Orders.ShippingRates)
		orders.POST("/:id/shipping/label", c.Orders.PurchaseLabel)
		orders.DELETE("/:id/shipping/label", c.Orders.VoidLabel)
	}

	inquiries := admin.Group("/inquiries")
	{
		inquiries.GET("", c.Inquiries.List)
		inquiries.GET("/:id", c.Inquiries.Get)
		inquiries.PUT("/:id", c.Inquiries.Update)
		inquiries.DELETE("/:id", c.Inquiries.Delete)
		inquiries.POST("/:id/decline", c.Inquiries.Decline)
		inquiries.GET("/:id/messages", c.Inquiries.Thread)
		inquiries.POST("/:id/messages", c.Inquiries.Reply)
		inquiries.GET("/:id/quote-suggestion", c.Inquiries.SuggestQuote)
		inquiries.POST("/:id/quote", c.Inquiries.SendQuote)
		inquiries.GET("/:id/invoices", c.Inquiries.Invoices)
	}

	invoices := admin.Group("/invoices")
	{
		invoices.POST("", c.Invoices.Generate)
		invoices.GET("/:id", c.Invoices.Get)
		invoices.POST("/:id/send", c.Invoices.Send)
		invoices.PUT("/:id/status", c.Invoices.UpdateStatus)
	}

	inventory := admin.Group("/inventory")
	{
		inventory.GET("/alerts", c.Inventory.Alerts)
		inventory.POST("/alerts/:id/resolve", c.Inventory.ResolveAlert)
		inventory.POST("/:productId/adjust", c.Inventory.Adjust)
		inventory.GET("/:productId/movements", c.Inventory.Movements)
	}

	products := admin.Group("/products")
	{
		products.GET("", c.Products.List)
		products.GET("/:id", c.Products.Get)
		products.POST("/:id/link", c.Products.Link)
		products.DELETE("/:id/link", c.Products.Unlink)
	}
}
