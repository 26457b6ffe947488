//go:build integration

// Package pgtest starts a disposable PostgreSQL container for integration tests.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/iyhunko/product-catalog/internal/config"
	reposql "github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	testUser     = "testuser"
	testPassword = "secret"
	testDBName   = "testdb"
)

// TestDB holds the test database connection and the container backing it.
type TestDB struct {
	DB       *sql.DB
	Config   config.DB
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// SetupTestDB runs a PostgreSQL container and opens it through StartDB, which applies the migrations.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}
	pool.MaxWait = 120 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_PASSWORD=" + testPassword,
			"POSTGRES_USER=" + testUser,
			"POSTGRES_DB=" + testDBName,
			"listen_addresses='*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}

	// orphaned containers are removed after two minutes
	if err := resource.Expire(120); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}

	host, port, err := net.SplitHostPort(resource.GetHostPort("5432/tcp"))
	if err != nil {
		_ = pool.Purge(resource)
		t.Fatalf("Could not resolve database address: %s", err)
	}

	conf := config.DB{
		Driver:         "pgx",
		Host:           host,
		Port:           port,
		User:           testUser,
		Password:       testPassword,
		Name:           testDBName,
		SSLMode:        "disable",
		MigrationsPath: "file://" + migrationsDir(t),
	}

	var db *sql.DB
	if err := pool.Retry(func() error {
		var err error
		db, err = reposql.StartDB(context.Background(), conf)
		return err
	}); err != nil {
		_ = pool.Purge(resource)
		t.Fatalf("Could not connect to database: %s", err)
	}

	tdb := &TestDB{
		DB:       db,
		Config:   conf,
		Pool:     pool,
		Resource: resource,
	}
	t.Cleanup(func() { tdb.cleanup(t) })
	return tdb
}

// TruncateTables empties every table and resets the product id sequence.
func (tdb *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	if _, err := tdb.DB.ExecContext(context.Background(), "TRUNCATE TABLE events, products RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("Could not truncate tables: %s", err)
	}
}

// Count returns the number of rows in table.
func (tdb *TestDB) Count(t *testing.T, table string) int {
	t.Helper()

	var n int
	if err := tdb.DB.QueryRowContext(context.Background(), fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		t.Fatalf("Could not count %s: %s", table, err)
	}
	return n
}

func (tdb *TestDB) cleanup(t *testing.T) {
	if err := tdb.DB.Close(); err != nil {
		t.Errorf("Could not close database: %s", err)
	}
	if err := tdb.Pool.Purge(tdb.Resource); err != nil {
		t.Errorf("Could not purge resource: %s", err)
	}
}

func migrationsDir(t *testing.T) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Could not resolve migrations directory")
	}
	dir, err := filepath.Abs(filepath.Join(filepath.Dir(file), "..", "..", "migrations"))
	if err != nil {
		t.Fatalf("Could not resolve migrations directory: %s", err)
	}
	return dir
}
