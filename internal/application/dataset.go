package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/infrastructure/storage"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// Dataset is the transfer document for the scoring workflow.
type Dataset struct {
	Users      []domain.User      `json:"users"`
	Candidates []domain.Candidate `json:"candidates"`
	Ratings    []domain.Rating    `json:"ratings"`
}

var datasetKeys = []string{"users", "candidates", "ratings"}

// DataService moves the scoring collections in and out of the store as a
// single JSON document.
type DataService struct {
	deps Deps
	obs  *middleware.Observer
}

// NewDataService creates a DataService.
func NewDataService(deps Deps) (*DataService, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	return &DataService{deps: deps, obs: deps.observer("dataset")}, nil
}

// Export encodes users, candidates and ratings as one JSON object. The
// document includes password hashes, so the caller needs manage_data.
func (s *DataService) Export(ctx context.Context, p domain.Principal) ([]byte, error) {
	return middleware.Observed(ctx, s.obs, "Export", func(ctx context.Context) ([]byte, error) {
		if err := p.Require(domain.CapManageData); err != nil {
			return nil, err
		}
		var ds Dataset
		err := s.deps.Store.Atomically(ctx, func(tx ports.Collections) error {
			var err error
			if ds.Users, err = storage.All(ctx, tx, domain.Users); err != nil {
				return err
			}
			if ds.Candidates, err = storage.All(ctx, tx, domain.Candidates); err != nil {
				return err
			}
			ds.Ratings, err = storage.All(ctx, tx, domain.Ratings)
			return err
		})
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(ds)
		if err != nil {
			return nil, fmt.Errorf("encode dataset: %w", err)
		}
		s.deps.Logger.InfoContext(ctx, "dataset exported",
			"users", len(ds.Users), "candidates", len(ds.Candidates), "ratings", len(ds.Ratings), "by", p.Subject)
		return data, nil
	})
}

// Import replaces users, candidates and ratings with the contents of data.
// The document must be a JSON object carrying all three arrays; anything else
// fails with domain.ErrInvalidEnvelope and leaves the store untouched. The
// three collections are replaced in one store transaction. The caller needs
// manage_data.
func (s *DataService) Import(ctx context.Context, p domain.Principal, data []byte) error {
	return s.obs.Observe(ctx, "Import", func(ctx context.Context) error {
		if err := p.Require(domain.CapManageData); err != nil {
			return err
		}
		ds, err := DecodeDataset(data)
		if err != nil {
			s.deps.Logger.WarnContext(ctx, "dataset rejected", "error", err)
			return err
		}

		err = s.deps.Store.Atomically(ctx, func(tx ports.Collections) error {
			if err := storage.Replace(ctx, tx, domain.Users, ds.Users, func(u domain.User) string { return u.ID }); err != nil {
				return err
			}
			if err := storage.Replace(ctx, tx, domain.Candidates, ds.Candidates,
				func(c domain.Candidate) string { return c.ID }); err != nil {
				return err
			}
			return storage.Replace(ctx, tx, domain.Ratings, ds.Ratings, func(r domain.Rating) string { return r.ID })
		})
		if err != nil {
			return err
		}
		s.deps.Logger.InfoContext(ctx, "dataset imported",
			"users", len(ds.Users), "candidates", len(ds.Candidates), "ratings", len(ds.Ratings), "by", p.Subject)
		return nil
	})
}

// DecodeDataset parses a transfer document. Every record must carry an id.
func DecodeDataset(data []byte) (Dataset, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err)
	}
	for _, key := range datasetKeys {
		v, ok := raw[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return Dataset{}, fmt.Errorf("%w: missing %q", domain.ErrInvalidEnvelope, key)
		}
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err)
	}
	if err := requireIDs("users", ds.Users, func(u domain.User) string { return u.ID }); err != nil {
		return Dataset{}, err
	}
	if err := requireIDs("candidates", ds.Candidates, func(c domain.Candidate) string { return c.ID }); err != nil {
		return Dataset{}, err
	}
	if err := requireIDs("ratings", ds.Ratings, func(r domain.Rating) string { return r.ID }); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func requireIDs[T any](key string, records []T, idOf func(T) string) error {
	for i, r := range records {
		if idOf(r) == "" {
			return fmt.Errorf("%w: %s[%d] has no id", domain.ErrInvalidEnvelope, key, i)
		}
	}
	return nil
}
