// Package docstore описывает документное хранилище, на которое опирается ядро:
// чтение/запись отдельных документов, транзакции с оптимистичным повтором
// и пакетная запись.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	// ErrConflict транзакция не смогла закоммититься за отведённое число попыток.
	ErrConflict = errors.New("docstore: transaction conflict")
)

const DefaultMaxAttempts = 5

type Ref struct {
	Collection string
	ID         string
}

func (r Ref) String() string { return r.Collection + "/" + r.ID }

// Fields частичное обновление: ключи верхнего уровня документа.
type Fields map[string]any

type Op int

const (
	OpSet Op = iota
	OpUpdate
)

type Write struct {
	Ref    Ref
	Op     Op
	Value  any    // для OpSet
	Fields Fields // для OpUpdate
}

func SetWrite(ref Ref, v any) Write { return Write{Ref: ref, Op: OpSet, Value: v} }

func UpdateWrite(ref Ref, f Fields) Write { return Write{Ref: ref, Op: OpUpdate, Fields: f} }

type Document struct {
	Ref  Ref
	Data []byte
}

func (d Document) Decode(dst any) error {
	if err := json.Unmarshal(d.Data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", d.Ref, err)
	}
	return nil
}

// Tx доступ к документам внутри транзакции. Записи видны последующим чтениям
// той же транзакции и применяются только при коммите.
type Tx interface {
	Get(ctx context.Context, ref Ref, dst any) error
	Set(ctx context.Context, ref Ref, v any) error
	Update(ctx context.Context, ref Ref, fields Fields) error
}

type Store interface {
	Get(ctx context.Context, ref Ref, dst any) error
	Set(ctx context.Context, ref Ref, v any) error
	Update(ctx context.Context, ref Ref, fields Fields) error
	List(ctx context.Context, collection string) ([]Document, error)

	// RunTransaction выполняет fn атомарно. При конфликте записи fn вызывается
	// повторно, поэтому она не должна иметь побочных эффектов вне tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// BatchWrite применяет все записи разом или ни одной.
	BatchWrite(ctx context.Context, writes []Write) error
}

type Options struct {
	MaxAttempts int
	// OnRetry вызывается перед каждой повторной попыткой транзакции.
	OnRetry func(attempt int, err error)
}

func (o Options) Attempts() int {
	if o.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return o.MaxAttempts
}

func (o Options) Retry(attempt int, err error) {
	if o.OnRetry != nil {
		o.OnRetry(attempt, err)
	}
}

// Merge накладывает fields на JSON-объект data (как UPDATE ... data || fields).
func Merge(data []byte, fields Fields) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("merge field %q: %w", k, err)
		}
		doc[k] = raw
	}
	return json.Marshal(doc)
}
