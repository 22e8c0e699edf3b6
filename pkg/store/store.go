package store

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
	"github.com/lwm2m-go/lwm2m-client/pkg/repository"
)

// Entry is one matched resource.
type Entry struct {
	URI      model.URI
	Resource *model.Resource
}

// Store is the live resource table.
type Store struct {
	config Config

	mu      sync.RWMutex
	repo    *repository.Repository
	updated []model.URI
	pending map[model.URI]bool
	backups map[uint16]*snapshot

	handlersMu sync.RWMutex
	handlers   []EventHandler

	// timeNow returns the current time. Defaults to time.Now.
	timeNow func() time.Time
}

// New creates a store without a repository. Operations wait until
// SetRepository is called.
func New(config Config) *Store {
	config.applyDefaults()
	return &Store{
		config:  config,
		pending: make(map[model.URI]bool),
		backups: make(map[uint16]*snapshot),
		timeNow: time.Now,
	}
}

// NewWithRepository creates a store that is ready immediately.
func NewWithRepository(config Config, repo *repository.Repository) *Store {
	s := New(config)
	s.SetRepository(repo)
	return s
}

// SetRepository installs the built repository and releases waiting calls.
func (s *Store) SetRepository(repo *repository.Repository) {
	s.mu.Lock()
	s.repo = repo
	s.mu.Unlock()
	s.config.Logger.Debug("store ready", "resources", len(repo.Resources))
}

// Ready returns true once a repository is installed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo != nil
}

// Len returns the number of live resources.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.repo == nil {
		return 0
	}
	return len(s.repo.Resources)
}

// Close stops backup timers and destroys every resource.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	repo := s.repo
	for id, snap := range s.backups {
		snap.timer.Stop()
		delete(s.backups, id)
	}
	s.mu.Unlock()
	repository.Destroy(ctx, repo)
}

// wait returns the repository, polling until it is installed.
func (s *Store) wait(ctx context.Context) (*repository.Repository, error) {
	for attempt := 0; ; attempt++ {
		s.mu.RLock()
		repo := s.repo
		s.mu.RUnlock()
		if repo != nil {
			return repo, nil
		}
		if s.config.MaxRetries > 0 && attempt >= s.config.MaxRetries {
			return nil, model.ServiceUnavailable("store not ready after %d retries", attempt)
		}
		if attempt == 0 {
			s.config.Logger.DebugContext(ctx, "store not ready, waiting")
		}

		timer := time.NewTimer(s.config.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// compile anchors pattern and compiles it.
func compile(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^" + pattern
	}
	if !strings.HasSuffix(pattern, "$") {
		pattern += "$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, model.BadRequest("invalid pattern %q: %v", pattern, err)
	}
	return re, nil
}

// exactURI returns the URI a pattern names literally, if it does.
func exactURI(pattern string) (model.URI, bool) {
	p := strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$")
	if strings.ContainsAny(p, `\[]()*+?.|{}`) {
		return model.URI{}, false
	}
	u, err := model.ParseURI(p)
	return u, err == nil && u.String() == p
}

// match returns the entries matching pattern in lexicographic URI order.
// The caller must hold s.mu.
func match(repo *repository.Repository, pattern string) ([]Entry, error) {
	if u, ok := exactURI(pattern); ok {
		if r, found := repo.Resources[u]; found {
			return []Entry{{URI: u, Resource: r}}, nil
		}
		return nil, nil
	}

	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for u, r := range repo.Resources {
		if re.MatchString(u.String()) {
			out = append(out, Entry{URI: u, Resource: r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI.String() < out[j].URI.String() })
	return out, nil
}

// Get returns the resources matching pattern. Remote reads skip sensitive
// resources when HideSensitive is set. It fails NotFound when nothing
// matches.
func (s *Store) Get(ctx context.Context, pattern string, remote bool) ([]Entry, error) {
	repo, err := s.wait(ctx)
	if err != nil {
		return nil, opError("get", pattern, nil, err)
	}

	s.mu.RLock()
	entries, err := match(repo, pattern)
	s.mu.RUnlock()
	if err != nil {
		return nil, opError("get", pattern, nil, err)
	}

	if remote && s.config.HideSensitive {
		visible := entries[:0:0]
		for _, e := range entries {
			if !e.Resource.Sensitive {
				visible = append(visible, e)
			}
		}
		entries = visible
	}
	if len(entries) == 0 {
		return nil, opError("get", pattern, nil, model.NotFound("no resource matches %s", pattern))
	}
	return entries, nil
}

// Lookup returns the resource at uri, or nil.
func (s *Store) Lookup(ctx context.Context, uri model.URI) (*model.Resource, error) {
	repo, err := s.wait(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo.Resources[uri], nil
}

// Values renders the resources matching pattern as plain values keyed by
// URI, substituting the configured empty value.
func (s *Store) Values(ctx context.Context, pattern string) (map[string]any, error) {
	entries, err := s.Get(ctx, pattern, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		v, err := s.config.Coercer.Value(ctx, e.Resource)
		if err != nil {
			return nil, opError("get", e.URI.String(), nil, err)
		}
		out[e.URI.String()] = v
	}
	return out, nil
}

// Write updates the resource at uri, or installs a new one templated from
// the repository definitions when it does not exist. A non-zero ownerID
// marks a remote write.
func (s *Store) Write(ctx context.Context, uri model.URI, value any, ownerID uint16) error {
	repo, err := s.wait(ctx)
	if err != nil {
		return opError("write", uri.String(), value, err)
	}

	s.mu.RLock()
	r := repo.Resources[uri]
	s.mu.RUnlock()

	if r != nil {
		if err := r.Update(ctx, value, ownerID); err != nil {
			return opError("write", uri.String(), value, err)
		}
	} else {
		if r, err = repo.Templated(ctx, uri, value); err != nil {
			return opError("write", uri.String(), value, err)
		}
		s.mu.Lock()
		repo.Resources[uri] = r
		s.mu.Unlock()
	}

	s.enforceLifetime(ctx, uri, r)
	s.markUpdated(uri)
	s.emit(Event{URI: uri.String(), Value: r, Type: EventUpdated, Remote: ownerID != 0, ServerID: ownerID})
	return nil
}

// Execute triggers an executable resource. The value is passed to event
// handlers as the argument and never stored.
func (s *Store) Execute(ctx context.Context, uri model.URI, arg any, ownerID uint16) error {
	repo, err := s.wait(ctx)
	if err != nil {
		return opError("execute", uri.String(), arg, err)
	}

	s.mu.RLock()
	r := repo.Resources[uri]
	s.mu.RUnlock()

	if r == nil {
		return opError("execute", uri.String(), arg, model.NotFound("resource %s not found", uri))
	}
	if !r.IsExecutable() {
		return opError("execute", uri.String(), arg, model.MethodNotAllowed("resource %s is not executable", uri))
	}

	s.emit(Event{URI: uri.String(), Value: arg, Type: EventExecuted, Remote: ownerID != 0, ServerID: ownerID})
	return nil
}

// Create installs a resource at uri, replacing any existing one.
func (s *Store) Create(ctx context.Context, uri model.URI, value any, ownerID uint16) error {
	repo, err := s.wait(ctx)
	if err != nil {
		return opError("create", uri.String(), value, err)
	}

	r, err := repo.Templated(ctx, uri, value)
	if err != nil {
		return opError("create", uri.String(), value, err)
	}

	s.mu.Lock()
	old := repo.Resources[uri]
	repo.Resources[uri] = r
	s.mu.Unlock()

	if old != nil && old != r {
		if err := old.Destroy(ctx); err != nil {
			s.config.Logger.WarnContext(ctx, "destroy replaced resource", "uri", uri.String(), "error", err)
		}
	}

	s.enforceLifetime(ctx, uri, r)
	s.markUpdated(uri)
	s.emit(Event{URI: uri.String(), Value: r, Type: EventCreated, Remote: ownerID != 0, ServerID: ownerID})
	return nil
}

// Delete removes the resources matching pattern. Remote deletes only remove
// deletable resources and fail Unauthorized, changing nothing, when every
// match is protected.
func (s *Store) Delete(ctx context.Context, pattern string, remote bool) error {
	_, err := s.delete(ctx, pattern, remote)
	return err
}

func (s *Store) delete(ctx context.Context, pattern string, remote bool) ([]Entry, error) {
	repo, err := s.wait(ctx)
	if err != nil {
		return nil, opError("delete", pattern, nil, err)
	}

	s.mu.Lock()
	entries, err := match(repo, pattern)
	if err != nil {
		s.mu.Unlock()
		return nil, opError("delete", pattern, nil, err)
	}
	if len(entries) == 0 {
		s.mu.Unlock()
		return nil, opError("delete", pattern, nil, model.NotFound("no resource matches %s", pattern))
	}

	targets := entries
	if remote {
		targets = targets[:0:0]
		for _, e := range entries {
			if e.Resource.IsDeletable() {
				targets = append(targets, e)
			}
		}
		if len(targets) == 0 {
			s.mu.Unlock()
			return nil, opError("delete", pattern, nil, model.Unauthorized("no deletable resource matches %s", pattern))
		}
	}
	for _, e := range targets {
		delete(repo.Resources, e.URI)
	}
	s.mu.Unlock()

	for _, e := range targets {
		if err := e.Resource.Destroy(ctx); err != nil {
			s.config.Logger.WarnContext(ctx, "destroy deleted resource", "uri", e.URI.String(), "error", err)
		}
		s.emit(Event{URI: e.URI.String(), Type: EventDeleted, Remote: remote})
	}
	return targets, nil
}

// enforceLifetime keeps the Server object lifetime at or above the minimum.
func (s *Store) enforceLifetime(ctx context.Context, uri model.URI, r *model.Resource) {
	if uri.ObjectID != model.ObjectServer || uri.ResourceID != model.ServerLifetime {
		return
	}
	sec, err := r.ToInteger(ctx)
	if err != nil || sec >= repository.MinimumLifetime {
		return
	}
	if err := r.Update(ctx, repository.MinimumLifetime, 0); err != nil {
		s.config.Logger.WarnContext(ctx, "clamp lifetime", "uri", uri.String(), "error", err)
	}
}

func (s *Store) markUpdated(uri model.URI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending[uri] {
		s.pending[uri] = true
		s.updated = append(s.updated, uri)
	}
}

// ConsumeUpdated returns the URIs written or created since the last call,
// in first-change order, and clears the set.
func (s *Store) ConsumeUpdated() []model.URI {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.updated
	s.updated = nil
	s.pending = make(map[model.URI]bool)
	return out
}

// ExtraObjectIDs returns the sorted ids of objects beyond the defaults.
func (s *Store) ExtraObjectIDs() []uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.repo == nil {
		return nil
	}
	var out []uint16
	for _, id := range s.repo.ObjectIDs() {
		if !model.IsDefaultObject(id) {
			out = append(out, id)
		}
	}
	return out
}

// InstanceIDs returns the sorted instance ids present under objectID.
func (s *Store) InstanceIDs(ctx context.Context, objectID uint16) ([]uint16, error) {
	repo, err := s.wait(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo.InstanceIDs(objectID), nil
}

// Export serializes the live resources, restricted to objectIDs when any
// are given, in the repository snapshot format.
func (s *Store) Export(ctx context.Context, objectIDs ...uint16) ([]byte, error) {
	repo, err := s.wait(ctx)
	if err != nil {
		return nil, err
	}

	want := make(map[uint16]bool, len(objectIDs))
	for _, id := range objectIDs {
		want[id] = true
	}

	s.mu.RLock()
	resources := make(map[model.URI]*model.Resource, len(repo.Resources))
	for u, r := range repo.Resources {
		if len(want) == 0 || want[u.ObjectID] {
			resources[u] = r
		}
	}
	s.mu.RUnlock()

	return repository.Encode(resources)
}
