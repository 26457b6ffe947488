package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

const productColumns = `id, name, price, stock_quantity, created_at, updated_at`

// ProductRepository implements repository.ProductRepository on top of database/sql.
type ProductRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (r *ProductRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

// FindByName retrieves the product with exactly the given name.
func (r *ProductRepository) FindByName(ctx context.Context, name string) (*model.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
}

// FindByID retrieves a single product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *ProductRepository) findOne(ctx context.Context, query string, arg any) (*model.Product, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	var result model.Product
	err = stmt.QueryRowContext(ctx, arg).Scan(
		&result.ID, &result.Name, &result.Price, &result.StockQuantity, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &result, nil
}

// FindAll retrieves every product in insertion order.
func (r *ProductRepository) FindAll(ctx context.Context) ([]*model.Product, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*model.Product, 0)
	for rows.Next() {
		var product model.Product
		err := rows.Scan(&product.ID, &product.Name, &product.Price, &product.StockQuantity, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// Insert stores a new product and sets the ID assigned by the database.
func (r *ProductRepository) Insert(ctx context.Context, product *model.Product) (*model.Product, error) {
	if product.CreatedAt.IsZero() {
		product.InitMeta()
	}

	query := `INSERT INTO products (name, price, stock_quantity, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, product.Name, product.Price, product.StockQuantity, product.CreatedAt, product.UpdatedAt).
		Scan(&product.ID)
	if err != nil {
		if detail, ok := uniqueViolation(err); ok {
			return nil, &repository.UniqueConstraintError{Detail: detail}
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	return product, nil
}

// Update persists all mutable fields of an already fetched product.
func (r *ProductRepository) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name = $1, price = $2, stock_quantity = $3, updated_at = $4 WHERE id = $5`

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, product.Name, product.Price, product.StockQuantity, product.UpdatedAt, product.ID)
	if err != nil {
		if detail, ok := uniqueViolation(err); ok {
			return &repository.UniqueConstraintError{Detail: detail}
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return expectOneRow(result, "product")
}

// Delete removes a product permanently.
func (r *ProductRepository) Delete(ctx context.Context, product *model.Product) error {
	stmt, err := r.getExecutor().PrepareContext(ctx, `DELETE FROM products WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectOneRow(result, "product")
}

func expectOneRow(result sql.Result, resource string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", resource, repository.ErrNotFound)
	}

	return nil
}
