package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/stockbook/internal/docstore"
	"github.com/Spok95/stockbook/internal/infra/db"
	"github.com/Spok95/stockbook/migrations"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "40001"}, true},
		{fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), true},
		{&pgconn.PgError{Code: "23505"}, true},
		{&pgconn.PgError{Code: "23503"}, false},
		{errors.New("connection reset"), false},
		{docstore.ErrNotFound, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryable(tt.err), "%v", tt.err)
	}
}

// newTestStore поднимает схему в базе из STOCKBOOK_TEST_DSN и чистит таблицу.
func newTestStore(t *testing.T, opts docstore.Options) *Store {
	t.Helper()
	dsn := os.Getenv("STOCKBOOK_TEST_DSN")
	if dsn == "" {
		t.Skip("STOCKBOOK_TEST_DSN not set")
	}

	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	require.NoError(t, err)
	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.Up(sqlDB, "."))
	require.NoError(t, sqlDB.Close())

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = pool.Exec(ctx, `TRUNCATE documents`)
	require.NoError(t, err)

	return New(pool, opts)
}

type counter struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, docstore.Options{})
	ref := docstore.Ref{Collection: "counters", ID: "invoices"}

	var got counter
	require.ErrorIs(t, s.Get(ctx, ref, &got), docstore.ErrNotFound)
	require.ErrorIs(t, s.Update(ctx, ref, docstore.Fields{"value": 1}), docstore.ErrNotFound)

	require.NoError(t, s.Set(ctx, ref, counter{Name: "invoices", Value: 101}))
	require.NoError(t, s.Update(ctx, ref, docstore.Fields{"value": 102}))
	require.NoError(t, s.Get(ctx, ref, &got))
	assert.Equal(t, counter{Name: "invoices", Value: 102}, got)

	docs, err := s.List(ctx, "counters")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ref, docs[0].Ref)
}

func TestStore_BatchWriteAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, docstore.Options{})
	a := docstore.Ref{Collection: "materials", ID: "a"}
	require.NoError(t, s.Set(ctx, a, counter{Value: 10}))

	err := s.BatchWrite(ctx, []docstore.Write{
		docstore.UpdateWrite(a, docstore.Fields{"value": 0}),
		docstore.UpdateWrite(docstore.Ref{Collection: "materials", ID: "missing"}, docstore.Fields{"value": 0}),
	})
	require.ErrorIs(t, err, docstore.ErrNotFound)

	var got counter
	require.NoError(t, s.Get(ctx, a, &got))
	assert.Equal(t, 10, got.Value)
}

func TestStore_ConcurrentTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, docstore.Options{MaxAttempts: 100})
	ref := docstore.Ref{Collection: "counters", ID: "c"}

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
				c := counter{Name: "c"}
				if err := tx.Get(ctx, ref, &c); err != nil && !errors.Is(err, docstore.ErrNotFound) {
					return err
				}
				c.Value++
				return tx.Set(ctx, ref, c)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var got counter
	require.NoError(t, s.Get(ctx, ref, &got))
	assert.Equal(t, n, got.Value)
}
