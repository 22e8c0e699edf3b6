package repository

import (
	"context"
	"fmt"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
)

// overlay writes the connection options into the first unbound Security and
// Server instances and binds zero-owner Access Control instances to the
// configured server.
func (repo *Repository) overlay(ctx context.Context, opts Options) error {
	if inst, ok := repo.unboundInstance(ctx, model.ObjectSecurity, model.SecurityShortServerID); ok {
		mode := model.SecurityModeNone
		if opts.EnableDTLS {
			mode = model.SecurityModePSK
		}
		values := map[uint16]any{
			model.SecurityServerURI:     opts.ServerURI(),
			model.SecurityBootstrap:     opts.Bootstrap,
			model.SecurityMode:          mode,
			model.SecurityShortServerID: int64(opts.ServerID),
			model.SecurityHoldOffTime:   opts.HoldOffSec,
		}
		if opts.EnableDTLS {
			values[model.SecurityIdentity] = []byte(opts.PSKIdentity)
			values[model.SecuritySecretKey] = opts.PSKKey
		}
		if err := repo.apply(ctx, model.ObjectSecurity, inst, values); err != nil {
			return err
		}
	}

	if inst, ok := repo.unboundInstance(ctx, model.ObjectServer, model.ServerShortServerID); ok {
		values := map[uint16]any{
			model.ServerShortServerID: int64(opts.ServerID),
			model.ServerLifetime:      opts.Lifetime(),
		}
		if err := repo.apply(ctx, model.ObjectServer, inst, values); err != nil {
			return err
		}
	}

	for _, inst := range repo.InstanceIDs(model.ObjectAccessControl) {
		if err := repo.bindACL(ctx, inst, opts.ServerID); err != nil {
			return err
		}
	}
	return nil
}

// unboundInstance finds the first instance of objectID whose server id
// resource is 0.
func (repo *Repository) unboundInstance(ctx context.Context, objectID, serverIDResource uint16) (uint16, bool) {
	for _, inst := range repo.InstanceIDs(objectID) {
		r := repo.Resources[model.URI{ObjectID: objectID, InstanceID: inst, ResourceID: serverIDResource}]
		if r == nil {
			continue
		}
		if id, err := r.ToInteger(ctx); err == nil && id == 0 {
			return inst, true
		}
	}
	return 0, false
}

func (repo *Repository) apply(ctx context.Context, objectID, instanceID uint16, values map[uint16]any) error {
	for resourceID, v := range values {
		uri := model.URI{ObjectID: objectID, InstanceID: instanceID, ResourceID: resourceID}
		if r, ok := repo.Resources[uri]; ok {
			if err := r.Update(ctx, v, 0); err != nil {
				return fmt.Errorf("overlay %s: %w", uri, err)
			}
			continue
		}
		r, err := repo.Templated(ctx, uri, v)
		if err != nil {
			return fmt.Errorf("overlay %s: %w", uri, err)
		}
		repo.Resources[uri] = r
	}
	return nil
}

// bindACL rewrites a zero owner to serverID and moves the per-server entry
// at key 0 to serverID. A missing entry defaults to full access.
func (repo *Repository) bindACL(ctx context.Context, inst, serverID uint16) error {
	ownerURI := model.URI{ObjectID: model.ObjectAccessControl, InstanceID: inst, ResourceID: model.AccessControlOwner}
	owner := repo.Resources[ownerURI]
	if owner == nil {
		return nil
	}
	if id, err := owner.ToInteger(ctx); err != nil || id != 0 {
		return nil
	}
	if err := owner.Update(ctx, int64(serverID), 0); err != nil {
		return fmt.Errorf("overlay %s: %w", ownerURI, err)
	}

	aclURI := model.URI{ObjectID: model.ObjectAccessControl, InstanceID: inst, ResourceID: model.AccessControlACL}
	acl := model.ACLDefault
	var current model.Instances
	if r := repo.Resources[aclURI]; r != nil {
		acl = r.ACL
		v, err := r.ToValue(ctx, true)
		if err != nil {
			return fmt.Errorf("overlay %s: %w", aclURI, err)
		}
		current, _ = v.(model.Instances)
	}

	next := make(model.Instances, len(current)+1)
	for k, child := range current {
		if k != 0 {
			next[k] = child
		}
	}
	if _, exists := next[serverID]; !exists {
		if child, ok := current[0]; ok {
			next[serverID] = child
		} else {
			full, err := model.Build(serverID, model.KindInteger, model.ACLDefault, int64(model.ACLAll), false)
			if err != nil {
				return err
			}
			next[serverID] = full
		}
	}

	r, err := model.Build(model.AccessControlACL, model.KindMultipleResource, acl, next, false)
	if err != nil {
		return fmt.Errorf("overlay %s: %w", aclURI, err)
	}
	_ = r.Init(ctx)
	repo.Resources[aclURI] = r
	return nil
}
