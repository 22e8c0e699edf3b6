package model

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Opaque string prefixes understood by conversions to bytes.
const (
	PrefixHex    = "hex:"
	PrefixBase64 = "base64:"
)

// NoLink is the object/instance id written for an absent object link.
const NoLink uint16 = 0xFFFF

// ObjectLink references an object instance.
type ObjectLink struct {
	ObjectID         uint16 `json:"objectId"`
	ObjectInstanceID uint16 `json:"objectInstanceId"`
}

// String renders the link in LWM2M text form "objectId:instanceId".
func (l ObjectLink) String() string {
	return strconv.Itoa(int(l.ObjectID)) + ":" + strconv.Itoa(int(l.ObjectInstanceID))
}

// Instances is the value of a MULTIPLE_RESOURCE: sub-index to child.
type Instances map[uint16]*Resource

// Keys returns the sub-indices in ascending order.
func (in Instances) Keys() []uint16 {
	keys := make([]uint16, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Source backs a resource with live external state. Every hook is optional.
//
// Init runs once when the resource is created; its result becomes the
// resource value unless Get is present. Get replaces the stored value on
// every read and Set replaces assignment on every write. Fini runs when the
// resource is destroyed.
type Source struct {
	Get  func(ctx context.Context) (any, error)
	Set  func(ctx context.Context, value any) error
	Init func(ctx context.Context) (any, error)
	Fini func(ctx context.Context) error
}

// InitFunc is a bare initializer; it is treated as a Source with only Init.
type InitFunc func(ctx context.Context) (any, error)

func sourceOf(v any) (*Source, bool) {
	switch s := v.(type) {
	case *Source:
		return s, s != nil
	case Source:
		return &s, true
	case InitFunc:
		return &Source{Init: s}, s != nil
	case func(ctx context.Context) (any, error):
		return &Source{Init: s}, s != nil
	}
	return nil, false
}

// isEmpty reports whether a plain value counts as empty.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []byte:
		return len(x) == 0
	case Instances:
		return len(x) == 0
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		if float32(int64(n)) != n {
			return 0, false
		}
		return int64(n), true
	case float64:
		if float64(int64(n)) != n {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		if _, err := n.Int64(); err != nil {
			f, err := n.Float64()
			return f, err == nil
		}
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func isNumber(v any) bool {
	_, ok := toFloat64(v)
	return ok
}

// decodeOpaqueString interprets "hex:" and "base64:" prefixes. Unprefixed
// strings are returned as their UTF-8 bytes.
func decodeOpaqueString(s string) ([]byte, error) {
	switch {
	case strings.HasPrefix(s, PrefixHex):
		b, err := hex.DecodeString(s[len(PrefixHex):])
		if err != nil {
			return nil, BadRequest("invalid hex value: %v", err)
		}
		return b, nil
	case strings.HasPrefix(s, PrefixBase64):
		b, err := base64.StdEncoding.DecodeString(s[len(PrefixBase64):])
		if err != nil {
			return nil, BadRequest("invalid base64 value: %v", err)
		}
		return b, nil
	}
	return []byte(s), nil
}

func hasOpaquePrefix(s string) bool {
	return strings.HasPrefix(s, PrefixHex) || strings.HasPrefix(s, PrefixBase64)
}

// bytesToInteger reads b as a hex-encoded big-endian integer.
func bytesToInteger(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) > 8 {
		return 0, BadRequest("opaque value of %d bytes overflows integer", len(b))
	}
	n, err := strconv.ParseUint(hex.EncodeToString(b), 16, 64)
	if err != nil {
		return 0, BadRequest("invalid opaque integer: %v", err)
	}
	return int64(n), nil
}

// integerToBytes encodes n as minimal big-endian bytes.
func integerToBytes(n int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return append([]byte(nil), buf[i:]...)
}

func floatToBytes(f float64) []byte {
	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(f)))
}

func asString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case ObjectLink:
		return x.String(), nil
	case Instances:
		return "", BadRequest("cannot convert multiple resource to string")
	}
	if i, ok := toInt64(v); ok {
		return strconv.FormatInt(i, 10), nil
	}
	if f, ok := toFloat64(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return "", BadRequest("cannot convert %T to string", v)
}

func asInteger(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return bytesToInteger(x)
	case string:
		if hasOpaquePrefix(x) {
			b, err := decodeOpaqueString(x)
			if err != nil {
				return 0, err
			}
			return bytesToInteger(b)
		}
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, BadRequest("cannot convert %q to integer", x)
		}
		return int64(f), nil
	case float32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case ObjectLink, Instances:
		return 0, BadRequest("cannot convert %T to integer", v)
	}
	if i, ok := toInt64(v); ok {
		return i, nil
	}
	return 0, BadRequest("cannot convert %T to integer", v)
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		if hasOpaquePrefix(x) {
			break
		}
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, BadRequest("cannot convert %q to float", x)
		}
		return f, nil
	}
	if f, ok := toFloat64(v); ok {
		return f, nil
	}
	i, err := asInteger(v)
	return float64(i), err
}

func asBoolean(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case string:
		return x != "" && x != "0", nil
	case []byte:
		return len(x) > 0 && x[0] != 0, nil
	case ObjectLink, Instances:
		return false, BadRequest("cannot convert %T to boolean", v)
	}
	if f, ok := toFloat64(v); ok {
		return f != 0, nil
	}
	return false, BadRequest("cannot convert %T to boolean", v)
}

func asBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		return append([]byte{}, x...), nil
	case string:
		return decodeOpaqueString(x)
	case bool:
		if x {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case ObjectLink:
		b := binary.LittleEndian.AppendUint16(nil, x.ObjectID)
		return binary.LittleEndian.AppendUint16(b, x.ObjectInstanceID), nil
	case Instances:
		return nil, BadRequest("cannot convert multiple resource to opaque")
	}
	if i, ok := toInt64(v); ok {
		return integerToBytes(i), nil
	}
	if f, ok := toFloat64(v); ok {
		return floatToBytes(f), nil
	}
	return nil, BadRequest("cannot convert %T to opaque", v)
}

func asObjectLink(v any) (ObjectLink, error) {
	switch x := v.(type) {
	case nil:
		return ObjectLink{}, nil
	case ObjectLink:
		return x, nil
	case *ObjectLink:
		if x == nil {
			return ObjectLink{}, nil
		}
		return *x, nil
	case map[string]any:
		obj, ok1 := toInt64(x["objectId"])
		inst, ok2 := toInt64(x["objectInstanceId"])
		if !ok1 || !ok2 {
			return ObjectLink{}, BadRequest("invalid object link %v", x)
		}
		return ObjectLink{ObjectID: uint16(obj), ObjectInstanceID: uint16(inst)}, nil
	case string:
		a, b, ok := strings.Cut(x, ":")
		if ok {
			obj, err1 := strconv.ParseUint(a, 10, 16)
			inst, err2 := strconv.ParseUint(b, 10, 16)
			if err1 == nil && err2 == nil {
				return ObjectLink{ObjectID: uint16(obj), ObjectInstanceID: uint16(inst)}, nil
			}
		}
	}
	return ObjectLink{}, BadRequest("cannot convert %T to object link", v)
}

// defaultValue returns the zero value of kind.
func defaultValue(kind Kind) any {
	switch kind {
	case KindString:
		return ""
	case KindOpaque:
		return []byte{}
	case KindInteger:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindBoolean:
		return false
	case KindObjectLink:
		return ObjectLink{}
	case KindMultipleResource:
		return Instances{}
	}
	return nil
}

// normalize converts a plain value to the canonical representation of kind.
func normalize(kind Kind, v any) (any, error) {
	if v == nil {
		return defaultValue(kind), nil
	}
	switch kind {
	case KindString:
		return asString(v)
	case KindOpaque:
		return asBytes(v)
	case KindInteger:
		return asInteger(v)
	case KindFloat:
		return asFloat(v)
	case KindBoolean:
		return asBoolean(v)
	case KindObjectLink:
		return asObjectLink(v)
	case KindFunction:
		return nil, nil
	case KindUndefined:
		return inferValue(v), nil
	}
	return v, nil
}

// inferValue canonicalizes a value whose kind is not yet known.
func inferValue(v any) any {
	if i, ok := toInt64(v); ok {
		return i
	}
	if f, ok := toFloat64(v); ok {
		return f
	}
	return v
}

// kindOfValue infers a kind from a plain value.
func kindOfValue(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case bool:
		return KindBoolean
	case []byte:
		return KindOpaque
	case ObjectLink, *ObjectLink:
		return KindObjectLink
	case Instances:
		return KindMultipleResource
	}
	if _, ok := toInt64(v); ok {
		return KindInteger
	}
	if _, ok := toFloat64(v); ok {
		return KindFloat
	}
	return KindUndefined
}
