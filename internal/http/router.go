package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
)

// InitRouter registers the middleware chain, the health check and the product routes.
func InitRouter(conf *config.Config, server *gin.Engine, healthCtr *controller.Controller, productCtr *controller.ProductController) *gin.Engine {
	// Logger and Metrics wrap Recovery so recovered panics are still logged and counted as 500
	server.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(),
		middleware.Recovery(),
		middleware.CORS(),
	)

	server.GET("/health", healthCtr.Health)

	api := server.Group(conf.HTTPServer.APIPrefix)

	// Product endpoints
	products := api.Group("/products")
	{
		products.POST("", productCtr.CreateProduct)
		products.GET("", productCtr.ListProducts)
		products.GET("/:id", productCtr.GetProduct)
		products.PUT("/:id", productCtr.UpdateProduct)
		products.DELETE("/:id", productCtr.DeleteProduct)
	}

	return server
}
