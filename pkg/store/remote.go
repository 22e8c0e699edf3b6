package store

import (
	"context"
	"errors"
	"sort"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
)

// Param pairs a URI with a value or execute argument.
type Param struct {
	URI   model.URI
	Value any
}

// RemoteGet reads every pattern on behalf of a server. Patterns that match
// nothing are skipped; it fails NotFound only when no pattern matches.
func (s *Store) RemoteGet(ctx context.Context, patterns []string) ([]Entry, error) {
	if len(patterns) == 0 {
		return nil, model.BadRequest("no resources requested")
	}
	var out []Entry
	seen := map[model.URI]bool{}
	for _, p := range patterns {
		entries, err := s.Get(ctx, p, true)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !seen[e.URI] {
				seen[e.URI] = true
				out = append(out, e)
			}
		}
	}
	if len(out) == 0 {
		return nil, model.NotFound("no resource matches the request")
	}
	return out, nil
}

// RemoteWrite writes each param in URI order and stops at the first failure.
func (s *Store) RemoteWrite(ctx context.Context, params []Param, serverID uint16) error {
	return s.fanOut(ctx, params, serverID, s.Write)
}

// RemoteCreate creates each param in URI order and stops at the first failure.
func (s *Store) RemoteCreate(ctx context.Context, params []Param, serverID uint16) error {
	return s.fanOut(ctx, params, serverID, s.Create)
}

// RemoteExecute executes each param in URI order and stops at the first failure.
func (s *Store) RemoteExecute(ctx context.Context, params []Param, serverID uint16) error {
	return s.fanOut(ctx, params, serverID, s.Execute)
}

// RemoteDelete deletes every pattern with remote permission checks.
func (s *Store) RemoteDelete(ctx context.Context, patterns []string) error {
	if len(patterns) == 0 {
		return model.BadRequest("no resources to delete")
	}
	for _, p := range patterns {
		if err := s.Delete(ctx, p, true); err != nil {
			return err
		}
	}
	return nil
}

type storeOp func(ctx context.Context, uri model.URI, value any, ownerID uint16) error

func (s *Store) fanOut(ctx context.Context, params []Param, serverID uint16, op storeOp) error {
	if len(params) == 0 {
		return model.BadRequest("no resources in request")
	}
	sorted := append([]Param(nil), params...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].URI.String() < sorted[j].URI.String() })
	for _, p := range sorted {
		if err := op(ctx, p.URI, p.Value, serverID); err != nil {
			return err
		}
	}
	return nil
}
