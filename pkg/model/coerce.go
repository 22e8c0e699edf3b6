package model

import "context"

func (r *Resource) plain(ctx context.Context) (any, error) {
	if r.Kind == KindFunction {
		return nil, MethodNotAllowed("function resource %d has no value", r.ID)
	}
	return r.ToValue(ctx, true)
}

// ToString converts the value to a string. Opaque values are read as UTF-8.
func (r *Resource) ToString(ctx context.Context) (string, error) {
	v, err := r.plain(ctx)
	if err != nil {
		return "", err
	}
	return asString(v)
}

// ToInteger converts the value to an integer. Opaque values and "hex:" or
// "base64:" strings are read as big-endian integers.
func (r *Resource) ToInteger(ctx context.Context) (int64, error) {
	v, err := r.plain(ctx)
	if err != nil {
		return 0, err
	}
	return asInteger(v)
}

// ToFloat converts the value to a float.
func (r *Resource) ToFloat(ctx context.Context) (float64, error) {
	v, err := r.plain(ctx)
	if err != nil {
		return 0, err
	}
	return asFloat(v)
}

// ToBoolean converts the value to a bool. Strings are true unless empty or
// "0"; opaque values are true when the first byte is non-zero.
func (r *Resource) ToBoolean(ctx context.Context) (bool, error) {
	v, err := r.plain(ctx)
	if err != nil {
		return false, err
	}
	return asBoolean(v)
}

// ToBytes converts the value to bytes.
func (r *Resource) ToBytes(ctx context.Context) ([]byte, error) {
	v, err := r.plain(ctx)
	if err != nil {
		return nil, err
	}
	return asBytes(v)
}

// ToObjectLink returns the object link value.
func (r *Resource) ToObjectLink(ctx context.Context) (ObjectLink, error) {
	v, err := r.plain(ctx)
	if err != nil {
		return ObjectLink{}, err
	}
	return asObjectLink(v)
}

// Coercer performs conversions that substitute EmptyValue for empty
// values. It is configured once at startup and passed to whoever renders
// values for consumers; a nil EmptyValue falls back to type defaults.
type Coercer struct {
	EmptyValue any
}

func (c Coercer) substitute(ctx context.Context, r *Resource) (any, bool, error) {
	if c.EmptyValue == nil {
		return nil, false, nil
	}
	if r.Kind == KindFunction {
		return nil, false, MethodNotAllowed("function resource %d has no value", r.ID)
	}
	if r.IsExecutable() {
		return c.EmptyValue, true, nil
	}
	// Checked before kind normalization turns a nil getter result into
	// the type default.
	v, _, err := r.rawValue(ctx)
	if err != nil {
		return nil, false, err
	}
	if isEmpty(v) {
		return c.EmptyValue, true, nil
	}
	return nil, false, nil
}

// String is ToString with empty substitution.
func (c Coercer) String(ctx context.Context, r *Resource) (any, error) {
	if v, ok, err := c.substitute(ctx, r); ok || err != nil {
		return v, err
	}
	return r.ToString(ctx)
}

// Integer is ToInteger with empty substitution.
func (c Coercer) Integer(ctx context.Context, r *Resource) (any, error) {
	if v, ok, err := c.substitute(ctx, r); ok || err != nil {
		return v, err
	}
	return r.ToInteger(ctx)
}

// Float is ToFloat with empty substitution.
func (c Coercer) Float(ctx context.Context, r *Resource) (any, error) {
	if v, ok, err := c.substitute(ctx, r); ok || err != nil {
		return v, err
	}
	return r.ToFloat(ctx)
}

// Boolean is ToBoolean with empty substitution.
func (c Coercer) Boolean(ctx context.Context, r *Resource) (any, error) {
	if v, ok, err := c.substitute(ctx, r); ok || err != nil {
		return v, err
	}
	return r.ToBoolean(ctx)
}

// Bytes is ToBytes with empty substitution.
func (c Coercer) Bytes(ctx context.Context, r *Resource) (any, error) {
	if v, ok, err := c.substitute(ctx, r); ok || err != nil {
		return v, err
	}
	return r.ToBytes(ctx)
}

// Value renders r as a plain value of its own kind. Multiple resources
// become map[uint16]any and functions yield nil.
func (c Coercer) Value(ctx context.Context, r *Resource) (any, error) {
	switch r.Kind {
	case KindString:
		return c.String(ctx, r)
	case KindInteger:
		return c.Integer(ctx, r)
	case KindFloat:
		return c.Float(ctx, r)
	case KindBoolean:
		return c.Boolean(ctx, r)
	case KindOpaque:
		return c.Bytes(ctx, r)
	case KindObjectLink:
		return r.ToObjectLink(ctx)
	case KindFunction:
		return nil, nil
	case KindMultipleResource:
		v, err := r.plain(ctx)
		if err != nil {
			return nil, err
		}
		inst, _ := v.(Instances)
		out := make(map[uint16]any, len(inst))
		for k, child := range inst {
			if out[k], err = c.Value(ctx, child); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return r.plain(ctx)
}
