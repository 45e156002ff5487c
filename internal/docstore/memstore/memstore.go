// Package memstore хранит документы в памяти процесса. Транзакции оптимистичные:
// версии прочитанных документов сверяются при коммите, при расхождении
// транзакция перезапускается.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Spok95/stockbook/internal/docstore"
)

var errStale = errors.New("memstore: read set changed")

type entry struct {
	Data    json.RawMessage `json:"data"`
	Version int64           `json:"version"`
}

type Store struct {
	mu   sync.Mutex
	docs map[docstore.Ref]entry
	opts docstore.Options
	path string
}

func New(opts docstore.Options) *Store {
	return &Store{docs: map[docstore.Ref]entry{}, opts: opts}
}

// Open поднимает хранилище из снапшота path (если файл есть) и
// сохраняет снапшот после каждой успешной записи.
func Open(path string, opts docstore.Options) (*Store, error) {
	s := New(opts)
	s.path = path
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	var snap map[string]entry
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	for key, e := range snap {
		coll, id, ok := strings.Cut(key, "/")
		if !ok {
			return nil, fmt.Errorf("read snapshot: bad key %q", key)
		}
		s.docs[docstore.Ref{Collection: coll, ID: id}] = e
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref, dst any) error {
	s.mu.Lock()
	e, ok := s.docs[ref]
	s.mu.Unlock()
	if !ok {
		return docstore.ErrNotFound
	}
	return json.Unmarshal(e.Data, dst)
}

func (s *Store) Set(ctx context.Context, ref docstore.Ref, v any) error {
	return s.BatchWrite(ctx, []docstore.Write{docstore.SetWrite(ref, v)})
}

func (s *Store) Update(ctx context.Context, ref docstore.Ref, fields docstore.Fields) error {
	return s.BatchWrite(ctx, []docstore.Write{docstore.UpdateWrite(ref, fields)})
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []docstore.Document
	for ref, e := range s.docs {
		if ref.Collection != collection {
			continue
		}
		out = append(out, docstore.Document{Ref: ref, Data: append([]byte(nil), e.Data...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.ID < out[j].Ref.ID })
	return out, nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	attempts := s.opts.Attempts()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{s: s, reads: map[docstore.Ref]int64{}, writes: map[docstore.Ref][]byte{}}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		err := s.commit(tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errStale) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("%w after %d attempts", docstore.ErrConflict, attempt)
		}
		s.opts.Retry(attempt, err)
	}
}

func (s *Store) BatchWrite(ctx context.Context, writes []docstore.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// сначала считаем все записи, применяем только если ни одна не упала
	staged := make(map[docstore.Ref][]byte, len(writes))
	order := make([]docstore.Ref, 0, len(writes))
	for _, w := range writes {
		base, seen := staged[w.Ref]
		if !seen {
			if e, ok := s.docs[w.Ref]; ok {
				base = e.Data
			}
		}
		var data []byte
		var err error
		switch w.Op {
		case docstore.OpSet:
			data, err = json.Marshal(w.Value)
		case docstore.OpUpdate:
			if base == nil {
				return fmt.Errorf("update %s: %w", w.Ref, docstore.ErrNotFound)
			}
			data, err = docstore.Merge(base, w.Fields)
		default:
			err = fmt.Errorf("unknown op %d", w.Op)
		}
		if err != nil {
			return fmt.Errorf("batch %s: %w", w.Ref, err)
		}
		if !seen {
			order = append(order, w.Ref)
		}
		staged[w.Ref] = data
	}
	return s.apply(order, staged)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ref, ver := range tx.reads {
		if s.docs[ref].Version != ver {
			return errStale
		}
	}
	return s.apply(tx.order, tx.writes)
}

// apply вызывается под s.mu. Если снапшот не записался, документы
// возвращаются к прежним версиям: запись есть либо и в памяти, и в файле, либо нигде.
func (s *Store) apply(order []docstore.Ref, data map[docstore.Ref][]byte) error {
	prev := make(map[docstore.Ref]entry, len(order))
	for _, ref := range order {
		if e, ok := s.docs[ref]; ok {
			prev[ref] = e
		}
		s.put(ref, data[ref])
	}
	if err := s.persist(); err != nil {
		for _, ref := range order {
			if e, ok := prev[ref]; ok {
				s.docs[ref] = e
			} else {
				delete(s.docs, ref)
			}
		}
		return fmt.Errorf("memstore: write snapshot: %w", err)
	}
	return nil
}

// put вызывается под s.mu.
func (s *Store) put(ref docstore.Ref, data []byte) {
	prev := s.docs[ref]
	s.docs[ref] = entry{Data: data, Version: prev.Version + 1}
}

// persist вызывается под s.mu.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	snap := make(map[string]entry, len(s.docs))
	for ref, e := range s.docs {
		snap[ref.String()] = e
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	temp := s.path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(temp, s.path)
}

type memTx struct {
	s      *Store
	reads  map[docstore.Ref]int64
	writes map[docstore.Ref][]byte
	order  []docstore.Ref
}

func (t *memTx) read(ref docstore.Ref) ([]byte, bool) {
	if data, ok := t.writes[ref]; ok {
		return data, true
	}
	t.s.mu.Lock()
	e, ok := t.s.docs[ref]
	t.s.mu.Unlock()
	if _, seen := t.reads[ref]; !seen {
		// отсутствующий документ тоже в read set (версия 0): параллельное создание = конфликт
		t.reads[ref] = e.Version
	}
	if !ok {
		return nil, false
	}
	return e.Data, true
}

func (t *memTx) stage(ref docstore.Ref, data []byte) {
	if _, ok := t.writes[ref]; !ok {
		t.order = append(t.order, ref)
	}
	t.writes[ref] = data
}

func (t *memTx) Get(_ context.Context, ref docstore.Ref, dst any) error {
	data, ok := t.read(ref)
	if !ok {
		return docstore.ErrNotFound
	}
	return json.Unmarshal(data, dst)
}

func (t *memTx) Set(_ context.Context, ref docstore.Ref, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("set %s: %w", ref, err)
	}
	t.stage(ref, data)
	return nil
}

func (t *memTx) Update(_ context.Context, ref docstore.Ref, fields docstore.Fields) error {
	base, ok := t.read(ref)
	if !ok {
		return fmt.Errorf("update %s: %w", ref, docstore.ErrNotFound)
	}
	data, err := docstore.Merge(base, fields)
	if err != nil {
		return err
	}
	t.stage(ref, data)
	return nil
}
