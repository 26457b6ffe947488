package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/service"
)

const timestampLayout = "2006-01-02T15:04:05.999999-07:00"

// ProductService is the set of product use cases the controller needs.
type ProductService interface {
	CreateProduct(ctx context.Context, input service.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context) ([]*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*model.Product, error)
}

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	productService ProductService
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// CreateProductRequest represents the request body for creating a product.
// Timestamps sent by the client are not bound.
type CreateProductRequest struct {
	Name          string   `json:"name" binding:"required"`
	Price         *float64 `json:"price" binding:"required"`
	StockQuantity *int     `json:"stock_quantity" binding:"required"`
}

// UpdateProductRequest represents the request body for a partial update.
type UpdateProductRequest struct {
	Name          *string  `json:"name" binding:"omitnil,min=1"`
	Price         *float64 `json:"price"`
	StockQuantity *int     `json:"stock_quantity"`
}

// ProductResponse represents the response body for a product.
type ProductResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ProductEnvelope wraps a single product with a message.
type ProductEnvelope struct {
	Message string          `json:"message"`
	Product ProductResponse `json:"product"`
}

// ProductListEnvelope wraps all products with a message.
type ProductListEnvelope struct {
	Message string            `json:"message"`
	Product []ProductResponse `json:"product"`
}

// CreateProduct handles the HTTP POST request for creating a new product.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			pc.writeError(c, service.ErrValidation, true)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	product, err := pc.productService.CreateProduct(c.Request.Context(), service.CreateProductInput{
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		pc.writeError(c, err, true)
		return
	}

	c.JSON(http.StatusCreated, ProductEnvelope{
		Message: "Product created successfully.",
		Product: toProductResponse(product),
	})
}

// GetProduct handles the HTTP GET request for a single product.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := pc.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		pc.writeError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, ProductEnvelope{
		Message: "Product retrieved successfully.",
		Product: toProductResponse(product),
	})
}

// ListProducts handles the HTTP GET request for listing every product.
func (pc *ProductController) ListProducts(c *gin.Context) {
	products, err := pc.productService.ListProducts(c.Request.Context())
	if err != nil {
		pc.writeError(c, err, false)
		return
	}

	productResponses := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		productResponses = append(productResponses, toProductResponse(product))
	}

	c.JSON(http.StatusOK, ProductListEnvelope{
		Message: "All products retrieved successfully.",
		Product: productResponses,
	})
}

// UpdateProduct handles the HTTP PUT request. Only fields present in the body are changed.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			pc.writeError(c, service.ErrEmptyName, false)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	product, err := pc.productService.UpdateProduct(c.Request.Context(), id, model.ProductPatch{
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		pc.writeError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, ProductEnvelope{
		Message: "Product updated successfully.",
		Product: toProductResponse(product),
	})
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by ID.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := pc.productService.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		pc.writeError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, ProductEnvelope{
		Message: "Product deleted successfully.",
		Product: toProductResponse(product),
	})
}

// writeError maps service errors to status codes. Only the create route exposes
// the raw text of unexpected errors.
func (pc *ProductController) writeError(c *gin.Context, err error, exposeDetail bool) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name, price, and stock quantity are required."})
	case errors.Is(err, service.ErrDuplicateName):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Product with this name already exists."})
	case errors.Is(err, service.ErrEmptyName):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Name must not be empty."})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
	default:
		_ = c.Error(err)
		slog.Error("product request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		detail := "Internal Server Error"
		if exposeDetail {
			detail = err.Error()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detail})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid product ID"})
		return 0, false
	}
	return id, true
}

func toProductResponse(product *model.Product) ProductResponse {
	return ProductResponse{
		ID:            product.ID,
		Name:          product.Name,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
		CreatedAt:     product.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:     product.UpdatedAt.UTC().Format(timestampLayout),
	}
}
