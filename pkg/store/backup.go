package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
)

// snapshot is a JSON copy of one object's resources.
type snapshot struct {
	entries map[model.URI]json.RawMessage
	taken   time.Time
	timer   *time.Timer
}

// Backup snapshots every resource of objectID. The snapshot replaces any
// earlier one for the object and expires after Config.BackupTTL.
func (s *Store) Backup(ctx context.Context, objectID uint16) error {
	uri := objectURI(objectID)
	entries, err := s.Get(ctx, model.ObjectPattern(objectID), false)
	if err != nil {
		return opError("backup", uri, nil, errors.Unwrap(err))
	}

	snap := &snapshot{entries: make(map[model.URI]json.RawMessage, len(entries)), taken: s.timeNow()}
	for _, e := range entries {
		data, err := json.Marshal(e.Resource)
		if err != nil {
			return opError("backup", e.URI.String(), nil, model.InternalServerError(err))
		}
		snap.entries[e.URI] = data
	}
	snap.timer = time.AfterFunc(s.config.BackupTTL, func() { s.expire(objectID, snap) })

	s.mu.Lock()
	if prev := s.backups[objectID]; prev != nil {
		prev.timer.Stop()
	}
	s.backups[objectID] = snap
	s.mu.Unlock()

	s.config.Logger.DebugContext(ctx, "object backed up", "object", objectID, "resources", len(snap.entries))
	s.emit(Event{URI: uri, Type: EventBackedUp})
	return nil
}

func (s *Store) expire(objectID uint16, snap *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backups[objectID] == snap {
		delete(s.backups, objectID)
		s.config.Logger.Debug("backup expired", "object", objectID)
	}
}

// HasBackup returns true if an unexpired snapshot exists for objectID.
func (s *Store) HasBackup(objectID uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backups[objectID] != nil
}

// Restore replaces the live resources of objectID with its snapshot and
// discards the snapshot. Without a snapshot it does nothing.
func (s *Store) Restore(ctx context.Context, objectID uint16) error {
	uri := objectURI(objectID)
	repo, err := s.wait(ctx)
	if err != nil {
		return opError("restore", uri, nil, err)
	}

	s.mu.Lock()
	snap := s.backups[objectID]
	delete(s.backups, objectID)
	s.mu.Unlock()

	if snap == nil {
		s.config.Logger.DebugContext(ctx, "nothing to restore", "object", objectID)
		return nil
	}
	snap.timer.Stop()

	if _, err := s.delete(ctx, model.ObjectPattern(objectID), false); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}

	restored := make(map[model.URI]*model.Resource, len(snap.entries))
	for u, data := range snap.entries {
		var def map[string]any
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&def); err != nil {
			return opError("restore", u.String(), nil, model.InternalServerError(err))
		}
		r, err := model.From(ctx, def)
		if err != nil {
			return opError("restore", u.String(), nil, err)
		}
		r.ID = u.ResourceID
		restored[u] = r
	}

	s.mu.Lock()
	for u, r := range restored {
		repo.Resources[u] = r
	}
	s.mu.Unlock()

	for u := range restored {
		s.markUpdated(u)
	}
	s.config.Logger.DebugContext(ctx, "object restored", "object", objectID, "resources", len(restored))
	s.emit(Event{URI: uri, Type: EventRestored})
	return nil
}

func objectURI(objectID uint16) string {
	return fmt.Sprintf("/%d", objectID)
}
