package model

import (
	"context"
	"encoding/binary"
	"strconv"
)

// TLVHeaderSize is the size of id, kind and length fields.
const TLVHeaderSize = 5

// Serialize appends the TLV encoding of r to dst. Non-readable and
// FUNCTION resources append nothing.
func (r *Resource) Serialize(ctx context.Context, dst []byte) ([]byte, error) {
	return r.serializeAs(ctx, dst, r.ID)
}

func (r *Resource) serializeAs(ctx context.Context, dst []byte, id uint16) ([]byte, error) {
	if !r.IsReadable() || r.Kind == KindFunction {
		return dst, nil
	}
	v, err := r.ToValue(ctx, true)
	if err != nil {
		return dst, err
	}

	var body []byte
	switch r.Kind {
	case KindString:
		s, err := asString(v)
		if err != nil {
			return dst, err
		}
		body = []byte(s)
	case KindInteger:
		n, err := asInteger(v)
		if err != nil {
			return dst, err
		}
		body = strconv.AppendInt(nil, n, 10)
	case KindFloat:
		f, err := asFloat(v)
		if err != nil {
			return dst, err
		}
		body = strconv.AppendFloat(nil, f, 'g', -1, 64)
	case KindOpaque:
		if body, err = asBytes(v); err != nil {
			return dst, err
		}
	case KindBoolean:
		b, err := asBoolean(v)
		if err != nil {
			return dst, err
		}
		body = []byte{0}
		if b {
			body[0] = 1
		}
	case KindObjectLink:
		link := ObjectLink{ObjectID: NoLink, ObjectInstanceID: NoLink}
		if v != nil {
			if link, err = asObjectLink(v); err != nil {
				return dst, err
			}
		}
		body = binary.LittleEndian.AppendUint16(nil, link.ObjectID)
		body = binary.LittleEndian.AppendUint16(body, link.ObjectInstanceID)
	case KindMultipleResource:
		inst, _ := v.(Instances)
		body = make([]byte, 2)
		var count uint16
		for _, key := range inst.Keys() {
			before := len(body)
			if body, err = inst[key].serializeAs(ctx, body, key); err != nil {
				return dst, err
			}
			if len(body) > before {
				count++
			}
		}
		binary.LittleEndian.PutUint16(body, count)
	default:
		return dst, NotImplemented("cannot serialize %s resource %d", r.Kind, id)
	}

	if len(body) > 0xFFFF {
		return dst, BadRequest("resource %d value of %d bytes exceeds TLV limit", id, len(body))
	}
	dst = binary.LittleEndian.AppendUint16(dst, id)
	dst = append(dst, byte(r.Kind))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(body)))
	return append(dst, body...), nil
}

// Parse decodes one TLV entry from buf into result[id] and returns the
// unconsumed tail. Decoded resources carry ACLDefault.
func Parse(result map[uint16]*Resource, buf []byte) ([]byte, error) {
	if len(buf) < TLVHeaderSize {
		return buf, BadRequest("truncated TLV header: %d bytes", len(buf))
	}
	id := binary.LittleEndian.Uint16(buf[0:2])
	kind := Kind(buf[2])
	n := int(binary.LittleEndian.Uint16(buf[3:5]))
	if len(buf) < TLVHeaderSize+n {
		return buf, BadRequest("truncated TLV value for resource %d: need %d bytes, have %d", id, n, len(buf)-TLVHeaderSize)
	}
	data := buf[TLVHeaderSize : TLVHeaderSize+n]

	r, err := decodeTLV(id, kind, data)
	if err != nil {
		return buf, err
	}
	result[id] = r
	return buf[TLVHeaderSize+n:], nil
}

// ParseAll decodes every TLV entry in buf.
func ParseAll(buf []byte) (map[uint16]*Resource, error) {
	result := make(map[uint16]*Resource)
	for len(buf) > 0 {
		var err error
		if buf, err = Parse(result, buf); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func decodeTLV(id uint16, kind Kind, data []byte) (*Resource, error) {
	var value any
	switch kind {
	case KindString:
		value = string(data)
	case KindInteger:
		n, err := asInteger(string(data))
		if err != nil {
			return nil, err
		}
		value = n
	case KindFloat:
		f, err := asFloat(string(data))
		if err != nil {
			return nil, err
		}
		value = f
	case KindOpaque:
		value = append([]byte{}, data...)
	case KindBoolean:
		value = len(data) > 0 && data[0] != 0
	case KindObjectLink:
		if len(data) < 4 {
			return nil, BadRequest("object link for resource %d needs 4 bytes, have %d", id, len(data))
		}
		value = ObjectLink{
			ObjectID:         binary.LittleEndian.Uint16(data[0:2]),
			ObjectInstanceID: binary.LittleEndian.Uint16(data[2:4]),
		}
	case KindMultipleResource:
		if len(data) < 2 {
			return nil, BadRequest("multiple resource %d missing count", id)
		}
		count := int(binary.LittleEndian.Uint16(data[0:2]))
		rest := data[2:]
		children := make(map[uint16]*Resource, count)
		for i := 0; i < count; i++ {
			var err error
			if rest, err = Parse(children, rest); err != nil {
				return nil, err
			}
		}
		value = Instances(children)
	case KindFunction:
	default:
		return nil, NotImplemented("cannot parse %s resource %d", kind, id)
	}

	r, err := Build(id, kind, ACLDefault, value, false)
	if err != nil {
		return nil, err
	}
	r.initialized = true
	return r, nil
}
