//go:build integration

package testdb

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/noah-isme/sma-swap-api/pkg/database"
)

// Handle owns a migrated throwaway PostgreSQL container.
type Handle struct {
	DB     *sqlx.DB
	cancel func()
	stop   func(context.Context) error
}

// Close drops the connection pool and terminates the container.
func (h *Handle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start launches PostgreSQL and applies the embedded migrations.
func Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("school_swaps"),
		postgres.WithUsername("swaps"),
		postgres.WithPassword("swaps"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	fail := func(err error) (*Handle, error) {
		_ = pg.Terminate(context.Background())
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(err)
	}
	db, err := sqlx.Open("postgres", uri)
	if err != nil {
		return fail(err)
	}
	db.SetMaxOpenConns(20)
	if err := waitReady(ctx, db); err != nil {
		_ = db.Close()
		return fail(err)
	}
	if err := database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return fail(err)
	}

	return &Handle{DB: db, cancel: cancel, stop: pg.Terminate}, nil
}

func waitReady(ctx context.Context, db *sqlx.DB) error {
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("database not ready")
}
