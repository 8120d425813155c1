package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/catalog-service/internal/auth"
	"github.com/iyhunko/catalog-service/internal/http/middleware"
	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/iyhunko/catalog-service/internal/service"
)

const errBodyMissing = "Request body is missing"

// CatalogService is the set of catalog operations the controller exposes.
type CatalogService interface {
	ListAll(ctx context.Context) ([]*model.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*model.Product, error)
	ListByCategoryAndSubcategory(ctx context.Context, category, subcategory string) ([]*model.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, params service.SearchParams) (*service.SearchResult, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	AddReview(ctx context.Context, slug string, principal auth.Principal, input service.ReviewInput) (*model.Product, int, error)
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

// ImageResolver turns a stored image reference into a URL clients can fetch.
type ImageResolver interface {
	ResolveImage(ctx context.Context, image string) (string, error)
}

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	catalog CatalogService
	images  ImageResolver
}

// NewProductController creates a new ProductController. images may be nil, in which case image references are returned as stored.
func NewProductController(catalog CatalogService, images ImageResolver) *ProductController {
	return &ProductController{
		catalog: catalog,
		images:  images,
	}
}

// SearchRequest represents the query parameters of a product search.
type SearchRequest struct {
	Query        string `form:"query"`
	MainCategory string `form:"mainCategory"`
	Price        string `form:"price"`
	PriceMin     string `form:"priceMin"`
	PriceMax     string `form:"priceMax"`
	Rating       string `form:"rating"`
	Order        string `form:"order"`
	Page         string `form:"page"`
	PageSize     string `form:"pageSize"`
}

// ReviewRequest represents the request body for submitting a review.
type ReviewRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// ListProducts handles GET /products.
func (pc *ProductController) ListProducts(c *gin.Context) {
	products, err := pc.catalog.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	pc.respondList(c, products)
}

// ListByCategory handles GET /products/category/:category.
func (pc *ProductController) ListByCategory(c *gin.Context) {
	products, err := pc.catalog.ListByCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	pc.respondList(c, products)
}

// ListByCategoryAndSubcategory handles GET /products/category/:category/:subcategory.
func (pc *ProductController) ListByCategoryAndSubcategory(c *gin.Context) {
	products, err := pc.catalog.ListByCategoryAndSubcategory(c.Request.Context(), c.Param("category"), c.Param("subcategory"))
	if err != nil {
		respondError(c, err)
		return
	}
	pc.respondList(c, products)
}

// ListCategories handles GET /products/categoriesList.
func (pc *ProductController) ListCategories(c *gin.Context) {
	categories, err := pc.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Success!",
		"categories": categories,
	})
}

// SearchProducts handles GET /products/search.
func (pc *ProductController) SearchProducts(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := pc.catalog.Search(c.Request.Context(), service.SearchParams{
		Query:        req.Query,
		MainCategory: req.MainCategory,
		Price:        req.Price,
		PriceMin:     req.PriceMin,
		PriceMax:     req.PriceMax,
		Rating:       req.Rating,
		Order:        req.Order,
		Page:         req.Page,
		PageSize:     req.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":      pc.toResponses(c.Request.Context(), result.Products),
		"countProducts": result.Total,
		"page":          result.Page,
		"pages":         result.Pages,
	})
}

// GetProductBySlug handles GET /products/slug/:slug.
func (pc *ProductController) GetProductBySlug(c *gin.Context) {
	product, err := pc.catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pc.toResponse(c.Request.Context(), product))
}

// GetProduct handles GET /products/:id.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := pc.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pc.toResponse(c.Request.Context(), product))
}

// AddReview handles POST /products/:slug/review for an authenticated user.
// The router names the path segment id because it shares the position with /products/:id.
func (pc *ProductController) AddReview(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
		return
	}

	var req ReviewRequest
	if !bindBody(c, &req) {
		return
	}
	input := service.ReviewInput{Comment: req.Comment}
	if req.Rating != nil {
		input.Rating = *req.Rating
	}

	product, prior, err := pc.catalog.AddReview(c.Request.Context(), c.Param("id"), principal, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":             "Review was added",
		"numOfReviewsForUser": prior,
		"product":             pc.toResponse(c.Request.Context(), product),
	})
}

// CreateProduct handles POST /products for an admin.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var patch model.ProductPatch
	if !bindBody(c, &patch) {
		return
	}
	if patch.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBodyMissing})
		return
	}

	product := &model.Product{}
	patch.Apply(product)

	created, err := pc.catalog.Create(c.Request.Context(), product)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Product was added",
		"newProduct": pc.toResponse(c.Request.Context(), created),
	})
}

// UpdateProduct handles PUT /products/:id for an admin. Only the fields present in the body change.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch model.ProductPatch
	if !bindBody(c, &patch) {
		return
	}

	updated, err := pc.catalog.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Product was updated",
		"updatedProduct": pc.toResponse(c.Request.Context(), updated),
	})
}

// DeleteProduct handles DELETE /products/:id for an admin.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleted, err := pc.catalog.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product was deleted",
		"product": pc.toResponse(c.Request.Context(), deleted),
	})
}

func (pc *ProductController) respondList(c *gin.Context, products []*model.Product) {
	c.JSON(http.StatusOK, gin.H{
		"message":          fmt.Sprintf("Success! %d products were found", len(products)),
		"numberOfProducts": len(products),
		"products":         pc.toResponses(c.Request.Context(), products),
	})
}

func (pc *ProductController) toResponses(ctx context.Context, products []*model.Product) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		out = append(out, pc.toResponse(ctx, p))
	}
	return out
}

// toResponse copies the product and resolves its image. A failed resolution keeps the stored reference.
func (pc *ProductController) toResponse(ctx context.Context, product *model.Product) model.Product {
	out := *product
	if out.Reviews == nil {
		out.Reviews = []model.Review{}
	}
	if pc.images == nil {
		return out
	}

	url, err := pc.images.ResolveImage(ctx, out.Image)
	if err != nil {
		slog.Error("Failed to resolve product image", slog.Any("err", err), slog.String("product_id", out.ID.String()))
		return out
	}
	out.Image = url
	return out
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return uuid.Nil, false
	}
	return id, true
}

// bindBody decodes the JSON body into dst. An absent body is reported as missing.
func bindBody(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF):
		c.JSON(http.StatusBadRequest, gin.H{"error": errBodyMissing})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
	return false
}

// respondError maps catalog errors to their status. Anything else is logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	var catalogErr *service.Error
	if errors.As(err, &catalogErr) {
		c.JSON(statusFor(catalogErr.Kind), gin.H{"error": catalogErr.Error()})
		return
	}

	slog.Error("Request failed", slog.Any("err", err),
		slog.String("method", c.Request.Method), slog.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
