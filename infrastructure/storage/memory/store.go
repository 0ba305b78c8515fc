// Package memory provides an in-process ports.Store backed by maps.
// It is the default store for tests and for short-lived command runs.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store keeps every collection in memory.
//
// Reads take a shared lock and never block each other. All writes, including
// Atomically blocks, are serialized by writeMu. Atomically stages its writes
// on a copy of the tables and swaps the copy in only when fn succeeds, so a
// failed block leaves no trace.
type Store struct {
	// writeMu serializes writers and transactional blocks.
	writeMu sync.Mutex
	// mu guards tables and closed.
	mu     sync.RWMutex
	tables tables
	closed bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{tables: make(tables)}
}

// Get implements ports.Collections.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ports.NewStorageError(collection, "Get", ports.ErrStoreClosed)
	}
	return s.tables.get(collection, id)
}

// Scan implements ports.Collections.
func (s *Store) Scan(ctx context.Context, collection string) ([]ports.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ports.NewStorageError(collection, "Scan", ports.ErrStoreClosed)
	}
	return s.tables.scan(collection), nil
}

// Insert implements ports.Collections.
func (s *Store) Insert(ctx context.Context, collection, id string, data []byte) error {
	return s.write(ctx, collection, "Insert", func(t tables) error { return t.insert(collection, id, data) })
}

// Put implements ports.Collections.
func (s *Store) Put(ctx context.Context, collection, id string, data []byte) error {
	return s.write(ctx, collection, "Put", func(t tables) error {
		t.put(collection, id, data)
		return nil
	})
}

// Delete implements ports.Collections.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.write(ctx, collection, "Delete", func(t tables) error { return t.delete(collection, id) })
}

// Replace implements ports.Collections.
func (s *Store) Replace(ctx context.Context, collection string, records []ports.Record) error {
	return s.write(ctx, collection, "Replace", func(t tables) error {
		t.replace(collection, records)
		return nil
	})
}

func (s *Store) write(ctx context.Context, collection, op string, fn func(tables) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ports.NewStorageError(collection, op, ports.ErrStoreClosed)
	}
	return fn(s.tables)
}

// Atomically implements ports.Store. fn must only use tx; calling methods on
// s from inside fn deadlocks.
func (s *Store) Atomically(ctx context.Context, fn func(tx ports.Collections) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ports.NewStorageError("", "Atomically", ports.ErrStoreClosed)
	}
	staged := s.tables.clone()
	s.mu.RUnlock()

	if err := fn(&txView{tables: staged}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ports.NewStorageError("", "Atomically", ports.ErrStoreClosed)
	}
	s.tables = staged
	return nil
}

// Close implements ports.Store. Subsequent calls fail with ports.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// txView exposes staged tables to an Atomically block. It needs no locking
// because writeMu is held for the lifetime of the block.
type txView struct {
	tables tables
}

func (v *txView) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.tables.get(collection, id)
}

func (v *txView) Scan(ctx context.Context, collection string) ([]ports.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.tables.scan(collection), nil
}

func (v *txView) Insert(ctx context.Context, collection, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.tables.insert(collection, id, data)
}

func (v *txView) Put(ctx context.Context, collection, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.tables.put(collection, id, data)
	return nil
}

func (v *txView) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.tables.delete(collection, id)
}

func (v *txView) Replace(ctx context.Context, collection string, records []ports.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.tables.replace(collection, records)
	return nil
}

// table is one collection: records by id plus insertion order.
type table struct {
	order   []string
	records map[string][]byte
}

func newTable() *table { return &table{records: make(map[string][]byte)} }

type tables map[string]*table

func (t tables) get(collection, id string) ([]byte, error) {
	tbl, ok := t[collection]
	if !ok {
		return nil, domain.NewRecordError(collection, id, "Get", domain.ErrNotFound)
	}
	data, ok := tbl.records[id]
	if !ok {
		return nil, domain.NewRecordError(collection, id, "Get", domain.ErrNotFound)
	}
	return slices.Clone(data), nil
}

func (t tables) scan(collection string) []ports.Record {
	tbl, ok := t[collection]
	if !ok {
		return []ports.Record{}
	}
	out := make([]ports.Record, 0, len(tbl.order))
	for _, id := range tbl.order {
		out = append(out, ports.Record{ID: id, Data: slices.Clone(tbl.records[id])})
	}
	return out
}

func (t tables) table(collection string) *table {
	tbl, ok := t[collection]
	if !ok {
		tbl = newTable()
		t[collection] = tbl
	}
	return tbl
}

func (t tables) insert(collection, id string, data []byte) error {
	tbl := t.table(collection)
	if _, exists := tbl.records[id]; exists {
		return domain.NewRecordError(collection, id, "Insert", domain.ErrDuplicate)
	}
	tbl.order = append(tbl.order, id)
	tbl.records[id] = slices.Clone(data)
	return nil
}

func (t tables) put(collection, id string, data []byte) {
	tbl := t.table(collection)
	if _, exists := tbl.records[id]; !exists {
		tbl.order = append(tbl.order, id)
	}
	tbl.records[id] = slices.Clone(data)
}

func (t tables) delete(collection, id string) error {
	tbl, ok := t[collection]
	if !ok {
		return domain.NewRecordError(collection, id, "Delete", domain.ErrNotFound)
	}
	if _, exists := tbl.records[id]; !exists {
		return domain.NewRecordError(collection, id, "Delete", domain.ErrNotFound)
	}
	delete(tbl.records, id)
	tbl.order = slices.DeleteFunc(tbl.order, func(o string) bool { return o == id })
	return nil
}

func (t tables) replace(collection string, records []ports.Record) {
	tbl := newTable()
	for _, rec := range records {
		if _, exists := tbl.records[rec.ID]; !exists {
			tbl.order = append(tbl.order, rec.ID)
		}
		tbl.records[rec.ID] = slices.Clone(rec.Data)
	}
	t[collection] = tbl
}

// clone copies the table structure. Record bodies are shared because they are
// never mutated in place; every write stores a fresh clone.
func (t tables) clone() tables {
	out := make(tables, len(t))
	for name, tbl := range t {
		records := make(map[string][]byte, len(tbl.records))
		for id, data := range tbl.records {
			records[id] = data
		}
		out[name] = &table{order: slices.Clone(tbl.order), records: records}
	}
	return out
}
