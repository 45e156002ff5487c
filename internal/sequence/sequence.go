// Package sequence выдаёт человекочитаемые сквозные номера ("0101", "P100")
// из документов-счётчиков. Номер и запись счётчика меняются одной транзакцией,
// поэтому параллельные вызовы никогда не получат одно и то же значение.
package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/stockbook/internal/docstore"
)

const Collection = "counters"

var ErrAllocationConflict = errors.New("sequence: allocation conflict")

// Seq описание последовательности. Seed используется только при первом
// обращении, когда счётчика ещё нет.
type Seq struct {
	Name     string
	Prefix   string
	PadWidth int
	Seed     int64
}

var (
	Invoices       = Seq{Name: "invoices", PadWidth: 4, Seed: 101}
	ProductBundles = Seq{Name: "productBundles", Prefix: "P", PadWidth: 3, Seed: 100}
)

func (s Seq) Format(v int64) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.PadWidth, v)
}

type Counter struct {
	Name      string `json:"name"`
	NextValue int64  `json:"nextValue"`
}

func Ref(name string) docstore.Ref {
	return docstore.Ref{Collection: Collection, ID: name}
}

type Allocator struct {
	store    docstore.Store
	observer func(seq string, err error)
}

func NewAllocator(store docstore.Store) *Allocator {
	return &Allocator{store: store}
}

// WithObserver observer получает итог каждого Allocate (для метрик).
func (a *Allocator) WithObserver(fn func(seq string, err error)) *Allocator {
	a.observer = fn
	return a
}

// Allocate выдаёт следующий номер в отдельной транзакции.
func (a *Allocator) Allocate(ctx context.Context, seq Seq) (string, error) {
	return a.AllocateWith(ctx, seq, nil)
}

// AllocateWith выдаёт номер и в той же транзакции вызывает then с этим номером,
// например чтобы записать документ. Если then вернул ошибку, счётчик не
// сдвигается и номер не сгорает. При повторе транзакции then вызывается снова.
func (a *Allocator) AllocateWith(ctx context.Context, seq Seq, then func(ctx context.Context, tx docstore.Tx, id string) error) (string, error) {
	var id string
	err := a.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		var err error
		id, err = Next(ctx, tx, seq)
		if err != nil {
			return err
		}
		if then != nil {
			return then(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, docstore.ErrConflict) {
			err = fmt.Errorf("%w: %s: %w", ErrAllocationConflict, seq.Name, err)
		}
		a.observe(seq, err)
		return "", err
	}
	a.observe(seq, nil)
	return id, nil
}

func (a *Allocator) observe(seq Seq, err error) {
	if a.observer != nil {
		a.observer(seq.Name, err)
	}
}

// Next выдаёт номер внутри чужой транзакции, чтобы вызывающий мог в той же
// транзакции записать документ под этим номером.
func Next(ctx context.Context, tx docstore.Tx, seq Seq) (string, error) {
	c := Counter{Name: seq.Name, NextValue: seq.Seed}
	if err := tx.Get(ctx, Ref(seq.Name), &c); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return "", fmt.Errorf("read counter %s: %w", seq.Name, err)
	}
	current := c.NextValue
	c.Name = seq.Name
	c.NextValue = current + 1
	if err := tx.Set(ctx, Ref(seq.Name), c); err != nil {
		return "", fmt.Errorf("write counter %s: %w", seq.Name, err)
	}
	return seq.Format(current), nil
}
