// Package pgstore реализует docstore поверх PostgreSQL: каждый документ это
// строка таблицы documents с jsonb-телом.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/stockbook/internal/docstore"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	opts docstore.Options
}

func New(pool *pgxpool.Pool, opts docstore.Options) *Store {
	return &Store{pool: pool, opts: opts}
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref, dst any) error {
	return getDoc(ctx, s.pool, ref, dst)
}

func (s *Store) Set(ctx context.Context, ref docstore.Ref, v any) error {
	return setDoc(ctx, s.pool, ref, v)
}

func (s *Store) Update(ctx context.Context, ref docstore.Ref, fields docstore.Fields) error {
	return updateDoc(ctx, s.pool, ref, fields)
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, data
		FROM documents
		WHERE collection = $1
		ORDER BY id
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []docstore.Document
	for rows.Next() {
		d := docstore.Document{Ref: docstore.Ref{Collection: collection}}
		if err := rows.Scan(&d.Ref.ID, &d.Data); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RunTransaction SERIALIZABLE-транзакция; при serialization failure,
// deadlock или гонке на вставку одного и того же документа fn перезапускается.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	attempts := s.opts.Attempts()
	for attempt := 1; ; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("%w after %d attempts: %v", docstore.ErrConflict, attempt, err)
		}
		s.opts.Retry(attempt, err)
	}
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, pgTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) BatchWrite(ctx context.Context, writes []docstore.Write) error {
	if len(writes) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b := &pgx.Batch{}
	for _, w := range writes {
		switch w.Op {
		case docstore.OpSet:
			data, err := json.Marshal(w.Value)
			if err != nil {
				return fmt.Errorf("batch %s: %w", w.Ref, err)
			}
			b.Queue(upsertSQL, w.Ref.Collection, w.Ref.ID, string(data))
		case docstore.OpUpdate:
			data, err := json.Marshal(w.Fields)
			if err != nil {
				return fmt.Errorf("batch %s: %w", w.Ref, err)
			}
			b.Queue(mergeSQL, w.Ref.Collection, w.Ref.ID, string(data))
		default:
			return fmt.Errorf("batch %s: unknown op %d", w.Ref, w.Op)
		}
	}

	br := tx.SendBatch(ctx, b)
	for _, w := range writes {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return fmt.Errorf("batch %s: %w", w.Ref, err)
		}
		if w.Op == docstore.OpUpdate && tag.RowsAffected() == 0 {
			_ = br.Close()
			return fmt.Errorf("batch %s: %w", w.Ref, docstore.ErrNotFound)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ q querier }

func (t pgTx) Get(ctx context.Context, ref docstore.Ref, dst any) error {
	return getDoc(ctx, t.q, ref, dst)
}

func (t pgTx) Set(ctx context.Context, ref docstore.Ref, v any) error {
	return setDoc(ctx, t.q, ref, v)
}

func (t pgTx) Update(ctx context.Context, ref docstore.Ref, fields docstore.Fields) error {
	return updateDoc(ctx, t.q, ref, fields)
}

const (
	upsertSQL = `
		INSERT INTO documents (collection, id, data, version)
		VALUES ($1, $2, $3::jsonb, 1)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, version = documents.version + 1, updated_at = now()
	`
	mergeSQL = `
		UPDATE documents
		SET data = data || $3::jsonb, version = version + 1, updated_at = now()
		WHERE collection = $1 AND id = $2
	`
)

func getDoc(ctx context.Context, q querier, ref docstore.Ref, dst any) error {
	var data []byte
	err := q.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2
	`, ref.Collection, ref.ID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

func setDoc(ctx context.Context, q querier, ref docstore.Ref, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("set %s: %w", ref, err)
	}
	_, err = q.Exec(ctx, upsertSQL, ref.Collection, ref.ID, string(data))
	return err
}

func updateDoc(ctx context.Context, q querier, ref docstore.Ref, fields docstore.Fields) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", ref, err)
	}
	tag, err := q.Exec(ctx, mergeSQL, ref.Collection, ref.ID, string(data))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: %w", ref, docstore.ErrNotFound)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"23505": // unique_violation: два писателя создали один документ
		return true
	}
	return false
}
