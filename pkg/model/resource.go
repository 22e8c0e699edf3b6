package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// Resource is a typed, permission-checked value cell.
type Resource struct {
	// ID is the resource id within its object instance, or the sub-index
	// within a multiple resource.
	ID uint16

	// Kind selects the value representation.
	Kind Kind

	// ACL defines the allowed remote operations.
	ACL ACL

	// Sensitive hides the value from remote reads when the store is
	// configured to do so.
	Sensitive bool

	mu          sync.RWMutex
	value       any
	source      *Source
	initialized bool
}

// Build creates a resource without running any Source initializer.
// A nil value yields the zero value of kind. FUNCTION resources are always
// executable and never carry a value.
func Build(id uint16, kind Kind, acl ACL, value any, sensitive bool) (*Resource, error) {
	r := &Resource{ID: id, Kind: kind, ACL: acl, Sensitive: sensitive}

	if kind == KindFunction {
		r.ACL |= ACLExecute
		r.Sensitive = false
		return r, nil
	}

	if src, ok := sourceOf(value); ok {
		r.source = src
		r.value = defaultValue(kind)
		return r, nil
	}

	if kind == KindMultipleResource {
		inst, err := instancesOf(value)
		if err != nil {
			return nil, err
		}
		r.value = inst
		return r, nil
	}

	if kind == KindUndefined && value != nil {
		r.Kind = kindOfValue(value)
	}
	v, err := normalize(r.Kind, value)
	if err != nil {
		return nil, err
	}
	r.value = v
	return r, nil
}

// From resolves heterogeneous input into an initialized resource.
//
// Accepted input: *Resource (passed through), string, integer and float
// numbers, bool, []byte, ObjectLink, []any (multiple resource), Instances,
// a Source or InitFunc, or a definition map with "kind", "acl", "value" and
// "sensitive" keys. Source initializers run exactly once; their failures
// are logged and leave the resource with an empty value.
func From(ctx context.Context, input any) (*Resource, error) {
	r, err := buildValue(input)
	if err != nil {
		return nil, err
	}
	if err := r.Init(ctx); err != nil {
		slog.WarnContext(ctx, "resource init failed", "id", r.ID, "kind", r.Kind, "error", err)
	}
	return r, nil
}

func buildValue(input any) (*Resource, error) {
	if src, ok := sourceOf(input); ok {
		return Build(0, KindUndefined, ACLDefault, src, false)
	}

	switch v := input.(type) {
	case nil:
		return nil, BadRequest("missing resource value")
	case *Resource:
		return v, nil
	case map[string]any:
		if isDefinitionMap(v) {
			return buildDefinition(v)
		}
		return Build(0, KindMultipleResource, ACLDefault, v, false)
	case []any, Instances, map[uint16]any:
		return Build(0, KindMultipleResource, ACLDefault, v, false)
	}

	kind := kindOfValue(input)
	if kind == KindUndefined {
		return nil, BadRequest("unsupported resource value %T", input)
	}
	return Build(0, kind, ACLDefault, input, false)
}

func isDefinitionMap(m map[string]any) bool {
	_, hasKind := m["kind"]
	_, hasValue := m["value"]
	_, hasACL := m["acl"]
	return hasKind || hasValue || hasACL
}

func buildDefinition(m map[string]any) (*Resource, error) {
	kind, err := KindOf(m["kind"])
	if err != nil {
		return nil, BadRequest("%v", err)
	}
	acl, err := ACLOf(m["acl"])
	if err != nil {
		return nil, BadRequest("%v", err)
	}
	sensitive, _ := m["sensitive"].(bool)

	var id uint16
	if n, ok := toInt64(m["id"]); ok {
		id = uint16(n)
	}
	return Build(id, kind, acl, m["value"], sensitive)
}

func instancesOf(value any) (Instances, error) {
	inst := Instances{}
	add := func(key uint16, v any) error {
		child, err := buildValue(v)
		if err != nil {
			return fmt.Errorf("instance %d: %w", key, err)
		}
		child.ID = key
		inst[key] = child
		return nil
	}

	switch v := value.(type) {
	case nil:
	case Instances:
		for k, child := range v {
			child.ID = k
			inst[k] = child
		}
	case map[uint16]*Resource:
		for k, child := range v {
			child.ID = k
			inst[k] = child
		}
	case []any:
		for i, elem := range v {
			if err := add(uint16(i), elem); err != nil {
				return nil, err
			}
		}
	case map[uint16]any:
		for k, elem := range v {
			if err := add(k, elem); err != nil {
				return nil, err
			}
		}
	case map[string]any:
		for k, elem := range v {
			n, err := strconv.ParseUint(k, 10, 16)
			if err != nil {
				continue
			}
			if err := add(uint16(n), elem); err != nil {
				return nil, err
			}
		}
	default:
		return nil, BadRequest("cannot build multiple resource from %T", value)
	}
	return inst, nil
}

// Init runs the Source initializer once and initializes children.
// Failures clear the value; the returned error is informational only.
func (r *Resource) Init(ctx context.Context) error {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return nil
	}
	r.initialized = true
	src := r.source
	children, _ := r.value.(Instances)
	r.mu.Unlock()

	var errs error
	for _, key := range children.Keys() {
		if err := children[key].Init(ctx); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	if src == nil || src.Init == nil {
		return errs
	}

	v, err := src.Init(ctx)
	if err == nil && src.Get == nil {
		r.mu.Lock()
		if r.Kind == KindUndefined {
			r.Kind = kindOfValue(v)
		}
		v, err = normalize(r.Kind, v)
		if err == nil {
			r.value = v
		}
		r.mu.Unlock()
	}
	if err != nil {
		r.clear()
		return errors.Join(errs, fmt.Errorf("init resource %d: %w", r.ID, err))
	}
	return errs
}

// Destroy runs the Source finalizer and destroys children. Failures drop
// the value; the returned error is informational only.
func (r *Resource) Destroy(ctx context.Context) error {
	r.mu.RLock()
	src := r.source
	children, _ := r.value.(Instances)
	r.mu.RUnlock()

	var errs error
	for _, key := range children.Keys() {
		if err := children[key].Destroy(ctx); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	if src != nil && src.Fini != nil {
		if err := src.Fini(ctx); err != nil {
			r.clear()
			errs = errors.Join(errs, fmt.Errorf("destroy resource %d: %w", r.ID, err))
		}
	}
	return errs
}

func (r *Resource) clear() {
	r.mu.Lock()
	r.value = nil
	r.source = nil
	r.mu.Unlock()
}

// IsReadable returns true if remote reads are allowed.
func (r *Resource) IsReadable() bool { return r.ACL.CanRead() }

// IsWritable returns true if remote writes are allowed.
func (r *Resource) IsWritable() bool { return r.ACL.CanWrite() }

// IsExecutable returns true if the resource can be executed.
func (r *Resource) IsExecutable() bool { return r.ACL.CanExecute() }

// IsDeletable returns true if remote deletes are allowed.
func (r *Resource) IsDeletable() bool { return r.ACL.CanDelete() }

// IsCreatable returns true if remote creates are allowed.
func (r *Resource) IsCreatable() bool { return r.ACL.CanCreate() }

// HasSource returns true if the value is backed by a Source.
func (r *Resource) HasSource() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source != nil
}

// ToValue returns the current value. Unless internal is set, the resource
// must be readable. Executable resources have no value.
func (r *Resource) ToValue(ctx context.Context, internal bool) (any, error) {
	if !internal && !r.IsReadable() {
		return nil, MethodNotAllowed("resource %d is not readable", r.ID)
	}
	if r.IsExecutable() {
		return nil, nil
	}

	v, live, err := r.rawValue(ctx)
	if err != nil || !live {
		return v, err
	}
	return normalize(r.Kind, v)
}

// rawValue returns the getter result or the stored value as is. live
// reports whether the value came from a Source getter.
func (r *Resource) rawValue(ctx context.Context) (v any, live bool, err error) {
	r.mu.RLock()
	src, v := r.source, r.value
	r.mu.RUnlock()

	if src != nil && src.Get != nil {
		got, err := src.Get(ctx)
		if err != nil {
			return nil, true, withStatus(err)
		}
		return got, true, nil
	}
	return v, false, nil
}

// Update assigns a new value. A non-zero ownerID marks a remote write,
// which requires write permission.
func (r *Resource) Update(ctx context.Context, newValue any, ownerID uint16) error {
	if r.IsExecutable() {
		return MethodNotAllowed("resource %d is executable", r.ID)
	}
	if ownerID != 0 && !r.IsWritable() {
		return Unauthorized("resource %d is not writable", r.ID)
	}

	r.mu.RLock()
	src := r.source
	r.mu.RUnlock()

	if src != nil && src.Set != nil {
		v := newValue
		if in, ok := newValue.(*Resource); ok {
			var err error
			if v, err = in.ToValue(ctx, true); err != nil {
				return err
			}
		}
		if err := src.Set(ctx, v); err != nil {
			return withStatus(err)
		}
		return nil
	}

	in, ok := newValue.(*Resource)
	if !ok {
		var err error
		if in, err = From(ctx, newValue); err != nil {
			return err
		}
	}
	return r.assign(ctx, in)
}

func (r *Resource) assign(ctx context.Context, in *Resource) error {
	if r.Kind == KindUndefined || in.Kind == r.Kind {
		v, err := in.ToValue(ctx, true)
		if err != nil {
			return err
		}
		r.mu.Lock()
		if r.Kind == KindUndefined {
			r.Kind = in.Kind
		}
		r.value = cloneValue(v)
		r.mu.Unlock()
		return nil
	}

	if r.Kind == KindObjectLink || r.Kind == KindMultipleResource {
		return BadRequest("cannot write %s value to %s resource %d", in.Kind, r.Kind, r.ID)
	}

	v, err := in.convert(ctx, r.Kind)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.value = v
	r.mu.Unlock()
	return nil
}

// Retype returns a copy of r converted to kind. It is used to coerce an
// incoming value to the kind of a definition template.
func (r *Resource) Retype(ctx context.Context, kind Kind) (*Resource, error) {
	if r.Kind == kind {
		return r, nil
	}
	if kind == KindFunction {
		return Build(r.ID, KindFunction, r.ACL, nil, false)
	}
	if kind == KindObjectLink || kind == KindMultipleResource {
		return nil, BadRequest("cannot convert %s value to %s", r.Kind, kind)
	}
	v, err := r.convert(ctx, kind)
	if err != nil {
		return nil, err
	}
	return &Resource{ID: r.ID, Kind: kind, ACL: r.ACL, Sensitive: r.Sensitive, value: v, initialized: true}, nil
}

func (r *Resource) convert(ctx context.Context, kind Kind) (any, error) {
	switch kind {
	case KindString:
		return r.ToString(ctx)
	case KindInteger:
		return r.ToInteger(ctx)
	case KindFloat:
		return r.ToFloat(ctx)
	case KindBoolean:
		return r.ToBoolean(ctx)
	case KindOpaque:
		return r.ToBytes(ctx)
	}
	return nil, BadRequest("cannot convert %s value to %s", r.Kind, kind)
}

// Clone returns a deep copy. A Source is shared, not snapshotted.
func (r *Resource) Clone() *Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Resource{
		ID:          r.ID,
		Kind:        r.Kind,
		ACL:         r.ACL,
		Sensitive:   r.Sensitive,
		value:       cloneValue(r.value),
		source:      r.source,
		initialized: r.initialized,
	}
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return append([]byte{}, x...)
	case Instances:
		c := make(Instances, len(x))
		for k, child := range x {
			c[k] = child.Clone()
		}
		return c
	}
	return v
}

type resourceJSON struct {
	Kind      Kind  `json:"kind"`
	ACL       ACL   `json:"acl"`
	Sensitive *bool `json:"sensitive,omitempty"`
	Value     any   `json:"value,omitempty"`
}

// MarshalJSON encodes {kind, acl, sensitive?, value}. Opaque values are
// written as "base64:" strings and multiple resources as a map of child
// JSON keyed by sub-index.
func (r *Resource) MarshalJSON() ([]byte, error) {
	out := resourceJSON{Kind: r.Kind, ACL: r.ACL}
	if r.Sensitive {
		out.Sensitive = &r.Sensitive
	}
	if r.Kind != KindFunction {
		v, err := r.ToValue(context.Background(), true)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case []byte:
			out.Value = PrefixBase64 + base64.StdEncoding.EncodeToString(x)
		case Instances:
			children := make(map[string]*Resource, len(x))
			for k, child := range x {
				children[strconv.Itoa(int(k))] = child
			}
			out.Value = children
		default:
			out.Value = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return err
	}
	built, err := buildDefinition(m)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Kind = built.Kind
	r.ACL = built.ACL
	r.Sensitive = built.Sensitive
	r.value = built.value
	r.initialized = true
	return nil
}

// String returns a short description for logs.
func (r *Resource) String() string {
	return fmt.Sprintf("resource(%d %s %s)", r.ID, r.Kind, r.ACL)
}
