// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
)

// Record is one stored document: an identifier and its serialized body.
type Record struct {
	ID   string
	Data []byte
}

// Collections is the read/write surface over named collections of records.
// Collections are addressed by name (see domain.CollectionNames) and hold a
// mapping from record id to serialized record. Implementations preserve
// insertion order for Scan.
type Collections interface {
	// Get returns the record body stored under id. It returns an error
	// wrapping domain.ErrNotFound when the record does not exist.
	Get(ctx context.Context, collection, id string) ([]byte, error)

	// Scan returns every record of the collection in insertion order.
	// An empty or unknown collection yields an empty slice.
	Scan(ctx context.Context, collection string) ([]Record, error)

	// Insert appends a new record. It returns an error wrapping
	// domain.ErrDuplicate when id already exists in the collection.
	Insert(ctx context.Context, collection, id string, data []byte) error

	// Put stores data under id, replacing an existing record in place or
	// appending a new one.
	Put(ctx context.Context, collection, id string, data []byte) error

	// Delete removes the record stored under id. It returns an error
	// wrapping domain.ErrNotFound when the record does not exist.
	Delete(ctx context.Context, collection, id string) error

	// Replace discards every record of the collection and stores records
	// in the given order.
	Replace(ctx context.Context, collection string, records []Record) error
}

// Store is a local key-value store of named collections.
//
// Individual Collections calls on a Store are independent writes with no
// ordering guarantee across collections. Operations that must observe and
// modify several records as one unit run inside Atomically.
type Store interface {
	Collections

	// Atomically runs fn against a transactional view of the store. The
	// writes made through tx become visible only if fn returns nil; any
	// error from fn discards them and is returned unchanged. Atomically
	// calls are serialized with respect to each other.
	//
	// Example:
	//
	//	err := store.Atomically(ctx, func(tx ports.Collections) error {
	//	    if _, err := tx.Get(ctx, "nominees", id); err != nil {
	//	        return err
	//	    }
	//	    return tx.Insert(ctx, "votes", voteID, body)
	//	})
	Atomically(ctx context.Context, fn func(tx Collections) error) error

	// Close releases any resources held by the store.
	Close() error
}
