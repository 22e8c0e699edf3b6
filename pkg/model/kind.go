package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the data type of a resource value. The numeric values are the
// TLV kind tags.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindObject
	KindObjectInstance
	KindMultipleResource
	KindString
	KindOpaque
	KindInteger
	KindFloat
	KindBoolean
	KindObjectLink
	KindFunction
)

var kindNames = []string{
	"UNDEFINED", "OBJECT", "OBJECT_INSTANCE", "MULTIPLE_RESOURCE", "STRING",
	"OPAQUE", "INTEGER", "FLOAT", "BOOLEAN", "OBJECT_LINK", "FUNCTION",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// IsValid returns true if the kind is one of the defined tags.
func (k Kind) IsValid() bool {
	return int(k) < len(kindNames)
}

// ParseKind accepts a kind name (case-insensitive) or its numeric tag.
func ParseKind(s string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	n, err := strconv.ParseUint(name, 10, 8)
	if err != nil || !Kind(n).IsValid() {
		return KindUndefined, fmt.Errorf("unknown resource kind %q", s)
	}
	return Kind(n), nil
}

// KindOf converts a kind given as number or name.
func KindOf(v any) (Kind, error) {
	switch k := v.(type) {
	case Kind:
		return k, nil
	case string:
		return ParseKind(k)
	case nil:
		return KindUndefined, nil
	}
	n, ok := toInt64(v)
	if !ok || n < 0 || !Kind(n).IsValid() {
		return KindUndefined, fmt.Errorf("unknown resource kind %v", v)
	}
	return Kind(n), nil
}
