package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-service/internal/http/controller"
	"github.com/iyhunko/catalog-service/internal/http/middleware"
)

// InitRouter registers the middleware chain and every catalog route on server.
func InitRouter(server *gin.Engine, httpMiddleware *middleware.Middleware, ctr *controller.Controller, productCtr *controller.ProductController) *gin.Engine {
	// Recovery first so that panics in any later middleware are caught
	server.Use(middleware.Recovery())
	server.Use(middleware.Logger())
	server.Use(middleware.Metrics())
	server.Use(middleware.CORS())

	server.GET("/ping", ctr.Ping)

	authenticated := httpMiddleware.Authenticate()
	adminOnly := httpMiddleware.RequireAdmin()

	products := server.Group("/products")
	{
		products.GET("", productCtr.ListProducts)
		products.GET("/categoriesList", productCtr.ListCategories)
		products.GET("/search", productCtr.SearchProducts)
		products.GET("/slug/:slug", productCtr.GetProductBySlug)
		products.GET("/category/:category", productCtr.ListByCategory)
		products.GET("/category/:category/:subcategory", productCtr.ListByCategoryAndSubcategory)
		products.GET("/:id", productCtr.GetProduct)

		products.POST("/:id/review", authenticated, productCtr.AddReview)

		products.POST("", authenticated, adminOnly, productCtr.CreateProduct)
		products.PUT("/:id", authenticated, adminOnly, productCtr.UpdateProduct)
		products.DELETE("/:id", authenticated, adminOnly, productCtr.DeleteProduct)
	}

	return server
}
