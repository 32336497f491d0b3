package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/services"
)

type ProductController struct {
	productService services.ProductService
}

func NewProductController(svc services.ProductService) *ProductController {
	return &ProductController{productService: svc}
}

// List handles GET /products
func (pc *ProductController) List(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	products, total, svcErr := pc.productService.List(ctx.Request.Context(),
		models.ProductType(ctx.Query("type")), ctx.Query("search"), page, limit)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, paginated("products", products, total, page, limit))
}

// Get handles GET /products/:id and includes the linked twin, if any.
func (pc *ProductController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	product, svcErr := pc.productService.Get(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	resp := gin.H{"product": product}
	if twin, svcErr := pc.productService.Linked(ctx.Request.Context(), id); svcErr == nil {
		resp["linked_product"] = twin
	}
	ctx.JSON(http.StatusOK, resp)
}

// Link handles POST /products/:id/link
func (pc *ProductController) Link(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req models.LinkProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	link, svcErr := pc.productService.Link(ctx.Request.Context(), id, req.LinkedProductID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"link": link})
}

// Unlink handles DELETE /products/:id/link
func (pc *ProductController) Unlink(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if svcErr := pc.productService.Unlink(ctx.Request.Context(), id); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}
