// Package storage provides typed access to records held in a ports.Store.
// Records are serialized as JSON; the helpers bind each collection to its
// record type through domain.Collection so call sites never handle raw bytes.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// Get loads and decodes the record stored under id.
func Get[T any](ctx context.Context, c ports.Collections, coll domain.Collection[T], id string) (T, error) {
	var zero T
	data, err := c.Get(ctx, coll.Name(), id)
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, corrupt(coll.Name(), "Get", err)
	}
	return v, nil
}

// All loads and decodes every record of the collection in insertion order.
func All[T any](ctx context.Context, c ports.Collections, coll domain.Collection[T]) ([]T, error) {
	records, err := c.Scan(ctx, coll.Name())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			return nil, corrupt(coll.Name(), "Scan", fmt.Errorf("record %s: %w", rec.ID, err))
		}
		out = append(out, v)
	}
	return out, nil
}

// Filter loads every record of the collection and keeps those for which keep
// returns true.
func Filter[T any](
	ctx context.Context,
	c ports.Collections,
	coll domain.Collection[T],
	keep func(T) bool,
) ([]T, error) {
	all, err := All(ctx, c, coll)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Insert encodes v and appends it under id. It fails with domain.ErrDuplicate
// when id is already present.
func Insert[T any](ctx context.Context, c ports.Collections, coll domain.Collection[T], id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ports.NewStorageError(coll.Name(), "Insert", fmt.Errorf("encode: %w", err))
	}
	return c.Insert(ctx, coll.Name(), id, data)
}

// Put encodes v and stores it under id, replacing any existing record.
func Put[T any](ctx context.Context, c ports.Collections, coll domain.Collection[T], id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ports.NewStorageError(coll.Name(), "Put", fmt.Errorf("encode: %w", err))
	}
	return c.Put(ctx, coll.Name(), id, data)
}

// Replace discards the collection and stores values in order, keyed by idOf.
func Replace[T any](
	ctx context.Context,
	c ports.Collections,
	coll domain.Collection[T],
	values []T,
	idOf func(T) string,
) error {
	records := make([]ports.Record, 0, len(values))
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return ports.NewStorageError(coll.Name(), "Replace", fmt.Errorf("encode: %w", err))
		}
		records = append(records, ports.Record{ID: idOf(v), Data: data})
	}
	return c.Replace(ctx, coll.Name(), records)
}

func corrupt(collection, op string, err error) error {
	return ports.NewStorageError(collection, op, fmt.Errorf("%w: %v", ports.ErrCorruptRecord, err))
}
