// Package storagetest holds behavioural checks shared by every ports.Store
// implementation.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// Run exercises open against the ports.Store contract. open must return a
// fresh, empty store for every call.
func Run(t *testing.T, open func(t *testing.T) ports.Store) {
	t.Helper()

	t.Run("get missing returns not found", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(context.Background(), "users", "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("insert then get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, "users", "u1", []byte(`{"id":"u1"}`)))

		got, err := s.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"u1"}`, string(got))
	})

	t.Run("duplicate insert fails", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, "votes", "v1", []byte(`1`)))
		err := s.Insert(ctx, "votes", "v1", []byte(`2`))
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		got, err := s.Get(ctx, "votes", "v1")
		require.NoError(t, err)
		assert.Equal(t, "1", string(got))
	})

	t.Run("collections are independent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, "users", "x", []byte(`1`)))
		require.NoError(t, s.Insert(ctx, "nominees", "x", []byte(`2`)))

		users, err := s.Scan(ctx, "users")
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("scan preserves insertion order across put", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, s.Insert(ctx, "candidates", id, []byte(`"`+id+`"`)))
		}
		require.NoError(t, s.Put(ctx, "candidates", "a", []byte(`"a2"`)))
		require.NoError(t, s.Put(ctx, "candidates", "d", []byte(`"d"`)))

		recs, err := s.Scan(ctx, "candidates")
		require.NoError(t, err)
		ids := make([]string, 0, len(recs))
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []string{"c", "a", "b", "d"}, ids)
		assert.Equal(t, `"a2"`, string(recs[1].Data))
	})

	t.Run("scan of empty collection is empty", func(t *testing.T) {
		s := open(t)
		recs, err := s.Scan(context.Background(), "ratings")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, "nominees", "n1", []byte(`1`)))
		require.NoError(t, s.Delete(ctx, "nominees", "n1"))

		_, err := s.Get(ctx, "nominees", "n1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "nominees", "n1"), domain.ErrNotFound)
	})

	t.Run("replace swaps whole collection", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, "users", "old", []byte(`0`)))
		require.NoError(t, s.Replace(ctx, "users", []ports.Record{
			{ID: "n2", Data: []byte(`2`)},
			{ID: "n1", Data: []byte(`1`)},
		}))

		recs, err := s.Scan(ctx, "users")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "n2", recs[0].ID)
		assert.Equal(t, "n1", recs[1].ID)
		_, err = s.Get(ctx, "users", "old")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("atomically commits on success", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		err := s.Atomically(ctx, func(tx ports.Collections) error {
			if err := tx.Insert(ctx, "votes", "v1", []byte(`1`)); err != nil {
				return err
			}
			return tx.Put(ctx, "nominees", "n1", []byte(`{"votes":1}`))
		})
		require.NoError(t, err)

		_, err = s.Get(ctx, "votes", "v1")
		assert.NoError(t, err)
		_, err = s.Get(ctx, "nominees", "n1")
		assert.NoError(t, err)
	})

	t.Run("atomically rolls back on error", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, "nominees", "n1", []byte(`0`)))

		boom := errors.New("boom")
		err := s.Atomically(ctx, func(tx ports.Collections) error {
			if err := tx.Insert(ctx, "votes", "v1", []byte(`1`)); err != nil {
				return err
			}
			if err := tx.Put(ctx, "nominees", "n1", []byte(`1`)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = s.Get(ctx, "votes", "v1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		got, err := s.Get(ctx, "nominees", "n1")
		require.NoError(t, err)
		assert.Equal(t, "0", string(got))
	})

	t.Run("atomically sees its own writes", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		err := s.Atomically(ctx, func(tx ports.Collections) error {
			if err := tx.Insert(ctx, "users", "u1", []byte(`1`)); err != nil {
				return err
			}
			_, err := tx.Get(ctx, "users", "u1")
			return err
		})
		assert.NoError(t, err)
	})

	t.Run("concurrent check-and-insert admits one writer", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := range workers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := s.Atomically(ctx, func(tx ports.Collections) error {
					recs, err := tx.Scan(ctx, "votes")
					if err != nil {
						return err
					}
					if len(recs) > 0 {
						return domain.ErrAlreadyVoted
					}
					return tx.Insert(ctx, "votes", fmt.Sprintf("v%d", i), []byte(`1`))
				})
				if err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
		recs, err := s.Scan(ctx, "votes")
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("canceled context", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, s.Insert(ctx, "users", "u", []byte(`1`)), context.Canceled)
		_, err := s.Get(ctx, "users", "u")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
