//go:build integration

package sql_test

import (
	"context"
	gosql "database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/pgtest"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_Integration(t *testing.T) {
	testDB := pgtest.SetupTestDB(t)
	ctx := context.Background()
	productRepo := sql.NewProductRepository(testDB.DB)

	t.Run("insert assigns sequential ids", func(t *testing.T) {
		testDB.TruncateTables(t)

		first, err := productRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
		require.NoError(t, err)
		second, err := productRepo.Insert(ctx, &model.Product{Name: "Gadget", Price: 3, StockQuantity: 0})
		require.NoError(t, err)

		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)

		found, err := productRepo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Widget", found.Name)
		assert.Equal(t, 10.5, found.Price)
		assert.Equal(t, 5, found.StockQuantity)
		assert.WithinDuration(t, first.CreatedAt, found.CreatedAt, time.Millisecond)
		assert.Equal(t, found.CreatedAt, found.UpdatedAt)
	})

	t.Run("duplicate name is a unique constraint error", func(t *testing.T) {
		testDB.TruncateTables(t)

		_, err := productRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
		require.NoError(t, err)

		_, err = productRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 1, StockQuantity: 1})

		var uniqueErr *repository.UniqueConstraintError
		require.ErrorAs(t, err, &uniqueErr)
		assert.Contains(t, uniqueErr.Detail, "Widget")
		assert.Equal(t, 1, testDB.Count(t, "products"))
	})

	t.Run("duplicate name through lib/pq", func(t *testing.T) {
		testDB.TruncateTables(t)

		pqDB, err := gosql.Open("postgres", sql.DSN(testDB.Config))
		require.NoError(t, err)
		defer pqDB.Close()
		pqRepo := sql.NewProductRepository(pqDB)

		_, err = pqRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
		require.NoError(t, err)
		_, err = pqRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})

		var uniqueErr *repository.UniqueConstraintError
		assert.ErrorAs(t, err, &uniqueErr)
	})

	t.Run("rename onto an existing name is rejected", func(t *testing.T) {
		testDB.TruncateTables(t)

		_, err := productRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
		require.NoError(t, err)
		gadget, err := productRepo.Insert(ctx, &model.Product{Name: "Gadget", Price: 3, StockQuantity: 1})
		require.NoError(t, err)

		gadget.Apply(model.ProductPatch{Name: ptr("Widget")})
		err = productRepo.Update(ctx, gadget)

		var uniqueErr *repository.UniqueConstraintError
		assert.ErrorAs(t, err, &uniqueErr)
	})

	t.Run("find all is ordered by id", func(t *testing.T) {
		testDB.TruncateTables(t)

		all, err := productRepo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		for _, name := range []string{"C", "A", "B"} {
			_, err := productRepo.Insert(ctx, &model.Product{Name: name, Price: 1, StockQuantity: 1})
			require.NoError(t, err)
		}

		all, err = productRepo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"C", "A", "B"}, []string{all[0].Name, all[1].Name, all[2].Name})
	})

	t.Run("find by name", func(t *testing.T) {
		testDB.TruncateTables(t)

		_, err := productRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
		require.NoError(t, err)

		found, err := productRepo.FindByName(ctx, "Widget")
		require.NoError(t, err)
		assert.Equal(t, int64(1), found.ID)

		_, err = productRepo.FindByName(ctx, "widget")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update persists the patch and refreshes updated_at", func(t *testing.T) {
		testDB.TruncateTables(t)

		product, err := productRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
		require.NoError(t, err)

		product.Apply(model.ProductPatch{Price: ptr(20.0), StockQuantity: ptr(10)})
		require.NoError(t, productRepo.Update(ctx, product))

		found, err := productRepo.FindByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "Widget", found.Name)
		assert.Equal(t, 20.0, found.Price)
		assert.Equal(t, 10, found.StockQuantity)
		assert.True(t, found.UpdatedAt.After(found.CreatedAt))
	})

	t.Run("update and delete of a missing product", func(t *testing.T) {
		testDB.TruncateTables(t)

		missing := &model.Product{ID: 42, Name: "Ghost"}
		missing.InitMeta()

		assert.ErrorIs(t, productRepo.Update(ctx, missing), repository.ErrNotFound)
		assert.ErrorIs(t, productRepo.Delete(ctx, missing), repository.ErrNotFound)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		testDB.TruncateTables(t)

		product, err := productRepo.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
		require.NoError(t, err)

		require.NoError(t, productRepo.Delete(ctx, product))

		_, err = productRepo.FindByID(ctx, product.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestEventRepository_Integration(t *testing.T) {
	testDB := pgtest.SetupTestDB(t)
	ctx := context.Background()
	eventRepo := sql.NewEventRepository(testDB.DB)

	t.Run("event data round-trips through jsonb", func(t *testing.T) {
		testDB.TruncateTables(t)

		payload := map[string]any{"action": "created", "product_id": float64(7), "name": "Widget"}
		event, err := model.NewEvent(model.EventTypeProductCreated, payload)
		require.NoError(t, err)
		_, err = eventRepo.Create(ctx, event)
		require.NoError(t, err)

		pending, err := eventRepo.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, event.ID, pending[0].ID)
		assert.Equal(t, model.EventTypeProductCreated, pending[0].EventType)
		assert.Equal(t, model.EventStatusPending, pending[0].Status)
		assert.Nil(t, pending[0].ProcessedAt)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(pending[0].EventData, &decoded))
		assert.Equal(t, payload, decoded)
	})

	t.Run("processed events leave the pending list", func(t *testing.T) {
		testDB.TruncateTables(t)

		first, err := model.NewEvent(model.EventTypeProductCreated, map[string]any{"product_id": 1})
		require.NoError(t, err)
		_, err = eventRepo.Create(ctx, first)
		require.NoError(t, err)
		second, err := model.NewEvent(model.EventTypeProductDeleted, map[string]any{"product_id": 1})
		require.NoError(t, err)
		_, err = eventRepo.Create(ctx, second)
		require.NoError(t, err)

		require.NoError(t, eventRepo.UpdateStatus(ctx, first.ID, model.EventStatusProcessed))

		pending, err := eventRepo.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)
	})

	t.Run("limit caps the batch", func(t *testing.T) {
		testDB.TruncateTables(t)

		for i := 0; i < 3; i++ {
			event, err := model.NewEvent(model.EventTypeProductUpdated, map[string]any{"product_id": i})
			require.NoError(t, err)
			_, err = eventRepo.Create(ctx, event)
			require.NoError(t, err)
		}

		pending, err := eventRepo.ListPending(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
	})
}

func TestTransactionalRepository_Integration(t *testing.T) {
	testDB := pgtest.SetupTestDB(t)
	ctx := context.Background()
	txRepo := sql.NewTransactionalRepository(testDB.DB)

	t.Run("commit stores product and event", func(t *testing.T) {
		testDB.TruncateTables(t)

		err := txRepo.WithinTransaction(ctx, func(repos repository.Repositories) error {
			product, err := repos.Products.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
			if err != nil {
				return err
			}
			event, err := model.NewEvent(model.EventTypeProductCreated, map[string]any{"product_id": product.ID})
			if err != nil {
				return err
			}
			_, err = repos.Events.Create(ctx, event)
			return err
		})

		require.NoError(t, err)
		assert.Equal(t, 1, testDB.Count(t, "products"))
		assert.Equal(t, 1, testDB.Count(t, "events"))
	})

	t.Run("rollback discards both writes", func(t *testing.T) {
		testDB.TruncateTables(t)

		errBoom := errors.New("intentional error to trigger rollback")
		err := txRepo.WithinTransaction(ctx, func(repos repository.Repositories) error {
			product, err := repos.Products.Insert(ctx, &model.Product{Name: "Widget", Price: 10.5, StockQuantity: 5})
			if err != nil {
				return err
			}
			event, err := model.NewEvent(model.EventTypeProductCreated, map[string]any{"product_id": product.ID})
			if err != nil {
				return err
			}
			if _, err := repos.Events.Create(ctx, event); err != nil {
				return err
			}
			return errBoom
		})

		assert.ErrorIs(t, err, errBoom)
		assert.Zero(t, testDB.Count(t, "products"))
		assert.Zero(t, testDB.Count(t, "events"))
	})
}

func ptr[T any](v T) *T {
	return &v
}
