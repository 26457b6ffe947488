package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("resource not found")
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	FindByName(ctx context.Context, name string) (*model.Product, error)
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindAll(ctx context.Context) ([]*model.Product, error)
	Insert(ctx context.Context, product *model.Product) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, product *model.Product) error
}

// EventRepository defines persistence operations for outbox events.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	ListPending(ctx context.Context, limit int) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error
}

// Repositories groups the repositories bound to a single transaction.
type Repositories struct {
	Products ProductRepository
	Events   EventRepository
}

// Transactor runs fn with repositories sharing one database transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
