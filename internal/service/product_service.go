package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/sqs"
)

// CreateProductInput carries the fields of a new product. Nil pointers mean the field was absent.
type CreateProductInput struct {
	Name          string
	Price         *float64
	StockQuantity *int
}

// ProductService implements the product use cases. Every write stores the
// product change and its outbox event in one transaction.
type ProductService struct {
	products   repository.ProductRepository
	transactor repository.Transactor
}

// NewProductService creates a ProductService reading through products and writing through transactor.
func NewProductService(products repository.ProductRepository, transactor repository.Transactor) *ProductService {
	return &ProductService{
		products:   products,
		transactor: transactor,
	}
}

// CreateProduct validates the input, rejects duplicate names and stores the product.
func (ps *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*model.Product, error) {
	if input.Name == "" || input.Price == nil || input.StockQuantity == nil {
		return nil, ErrValidation
	}

	_, err := ps.products.FindByName(ctx, input.Name)
	switch {
	case err == nil:
		return nil, ErrDuplicateName
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	product := &model.Product{
		Name:          input.Name,
		Price:         *input.Price,
		StockQuantity: *input.StockQuantity,
	}
	product.InitMeta()

	err = ps.transactor.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Products.Insert(ctx, product); err != nil {
			return err
		}
		return recordEvent(ctx, repos.Events, model.EventTypeProductCreated, "created", product)
	})
	if err != nil {
		return nil, mapWriteError(err)
	}

	metrics.ProductsCreated.Inc()
	slog.Info("product created", slog.Int64("product_id", product.ID), slog.String("name", product.Name))

	return product, nil
}

// GetProduct returns the product with the given ID.
func (ps *ProductService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	product, err := ps.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// ListProducts returns every product.
func (ps *ProductService) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return ps.products.FindAll(ctx)
}

// UpdateProduct applies the present fields of patch to the product with the given ID.
func (ps *ProductService) UpdateProduct(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, ErrEmptyName
	}

	product, err := ps.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Apply(patch)

	err = ps.transactor.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if err := repos.Products.Update(ctx, product); err != nil {
			return err
		}
		return recordEvent(ctx, repos.Events, model.EventTypeProductUpdated, "updated", product)
	})
	if err != nil {
		return nil, mapWriteError(err)
	}

	metrics.ProductsUpdated.Inc()
	slog.Info("product updated", slog.Int64("product_id", product.ID))

	return product, nil
}

// DeleteProduct removes the product with the given ID and returns its last state.
func (ps *ProductService) DeleteProduct(ctx context.Context, id int64) (*model.Product, error) {
	product, err := ps.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	err = ps.transactor.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if err := repos.Products.Delete(ctx, product); err != nil {
			return err
		}
		return recordEvent(ctx, repos.Events, model.EventTypeProductDeleted, "deleted", product)
	})
	if err != nil {
		return nil, mapWriteError(err)
	}

	metrics.ProductsDeleted.Inc()
	slog.Info("product deleted", slog.Int64("product_id", product.ID))

	return product, nil
}

func recordEvent(ctx context.Context, events repository.EventRepository, eventType, action string, product *model.Product) error {
	event, err := model.NewEvent(eventType, sqs.ProductMessage{
		Action:        action,
		ProductID:     product.ID,
		Name:          product.Name,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
	})
	if err != nil {
		return err
	}
	if _, err := events.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return nil
}

func mapWriteError(err error) error {
	var uniqueErr *repository.UniqueConstraintError
	switch {
	case errors.As(err, &uniqueErr):
		return ErrDuplicateName
	case errors.Is(err, repository.ErrNotFound):
		return ErrProductNotFound
	default:
		return err
	}
}
