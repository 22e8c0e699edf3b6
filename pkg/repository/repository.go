package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
)

// buildConcurrency bounds parallel leaf resolution.
const buildConcurrency = 32

// Repository is the built resource set. It is not safe for concurrent use;
// the store serializes access after construction.
type Repository struct {
	// Resources maps every live URI to its resource.
	Resources map[model.URI]*model.Resource

	// Definitions holds the first resource seen for each
	// (objectId, resourceId) pair, used as a template for new instances.
	Definitions map[uint16]map[uint16]*model.Resource

	// CredentialsLoaded reports whether a stored credential layer was used.
	CredentialsLoaded bool
}

// New returns an empty repository.
func New() *Repository {
	return &Repository{
		Resources:   make(map[model.URI]*model.Resource),
		Definitions: make(map[uint16]map[uint16]*model.Resource),
	}
}

// Build merges the configured layers, resolves every resource and applies
// the connection overlay.
func Build(ctx context.Context, opts Options) (*Repository, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.logger()

	var layers []map[string]any
	loaded := false
	if opts.Credentials != nil {
		if creds, ok := opts.Credentials.Load(); ok {
			layers = append(layers, creds)
			loaded = true
		}
	}
	layers = append(layers, opts.Sources...)
	if opts.IncludeDefaults {
		defaults, err := Defaults()
		if err != nil {
			return nil, err
		}
		layers = append(layers, defaults)
	}

	repo, err := Resolve(ctx, Merge(layers...))
	if err != nil {
		return nil, err
	}
	repo.CredentialsLoaded = loaded

	if loaded {
		logger.InfoContext(ctx, "using stored credentials, skipping connection overlay")
	} else if err := repo.overlay(ctx, opts); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "repository built",
		"resources", len(repo.Resources),
		"objects", len(repo.ObjectIDs()),
		"server", opts.ServerURI())
	return repo, nil
}

type leaf struct {
	uri  model.URI
	spec any
}

// Resolve turns every leaf of tree into a resource. Leaves are resolved in
// parallel; the first failure aborts the build.
func Resolve(ctx context.Context, tree Tree) (*Repository, error) {
	leaves := make([]leaf, 0, tree.Len())
	for objectID, instances := range tree {
		for instanceID, resources := range instances {
			for resourceID, spec := range resources {
				leaves = append(leaves, leaf{
					uri:  model.URI{ObjectID: objectID, InstanceID: instanceID, ResourceID: resourceID},
					spec: spec,
				})
			}
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return lessURI(leaves[i].uri, leaves[j].uri) })

	results := make([]*model.Resource, len(leaves))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(buildConcurrency)
	for i, l := range leaves {
		g.Go(func() error {
			r, err := model.From(gctx, l.spec)
			if err != nil {
				return fmt.Errorf("resource %s: %w", l.uri, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	repo := New()
	for i, l := range leaves {
		r := results[i]
		r.ID = l.uri.ResourceID
		repo.Resources[l.uri] = r
		repo.define(l.uri, r)
	}
	return repo, nil
}

func (repo *Repository) define(uri model.URI, r *model.Resource) {
	defs, ok := repo.Definitions[uri.ObjectID]
	if !ok {
		defs = make(map[uint16]*model.Resource)
		repo.Definitions[uri.ObjectID] = defs
	}
	if _, exists := defs[uri.ResourceID]; !exists {
		defs[uri.ResourceID] = r.Clone()
	}
}

// Definition returns the template for (objectID, resourceID), or nil.
func (repo *Repository) Definition(objectID, resourceID uint16) *model.Resource {
	return repo.Definitions[objectID][resourceID]
}

// Templated resolves value into a new resource for uri. A *model.Resource
// value is copied, never modified. When a definition
// exists for the URI's object and resource id, the value is converted to the
// definition's kind and takes its ACL and sensitivity.
func (repo *Repository) Templated(ctx context.Context, uri model.URI, value any) (*model.Resource, error) {
	r, err := model.From(ctx, value)
	if err != nil {
		return nil, err
	}
	if given, ok := value.(*model.Resource); ok && given == r {
		r = r.Clone()
	}
	if tpl := repo.Definition(uri.ObjectID, uri.ResourceID); tpl != nil {
		if r, err = r.Retype(ctx, tpl.Kind); err != nil {
			return nil, err
		}
		r.ACL = tpl.ACL
		r.Sensitive = tpl.Sensitive
	}
	r.ID = uri.ResourceID
	return r, nil
}

// InstanceIDs returns the sorted instance ids present under objectID.
func (repo *Repository) InstanceIDs(objectID uint16) []uint16 {
	seen := map[uint16]bool{}
	var ids []uint16
	for uri := range repo.Resources {
		if uri.ObjectID == objectID && !seen[uri.InstanceID] {
			seen[uri.InstanceID] = true
			ids = append(ids, uri.InstanceID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ObjectIDs returns the sorted object ids present.
func (repo *Repository) ObjectIDs() []uint16 {
	seen := map[uint16]bool{}
	var ids []uint16
	for uri := range repo.Resources {
		if !seen[uri.ObjectID] {
			seen[uri.ObjectID] = true
			ids = append(ids, uri.ObjectID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Destroy runs Destroy on every resource. Individual failures are logged
// and do not stop the sweep.
func Destroy(ctx context.Context, repo *Repository) {
	if repo == nil {
		return
	}
	for uri, r := range repo.Resources {
		if err := r.Destroy(ctx); err != nil {
			slog.WarnContext(ctx, "destroy resource failed", "uri", uri.String(), "error", err)
		}
	}
}

func lessURI(a, b model.URI) bool {
	if a.ObjectID != b.ObjectID {
		return a.ObjectID < b.ObjectID
	}
	if a.InstanceID != b.InstanceID {
		return a.InstanceID < b.InstanceID
	}
	return a.ResourceID < b.ResourceID
}
