package repository

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Tree is a merged definition set: objectId -> instanceId -> resourceId -> spec.
type Tree map[uint16]map[uint16]map[uint16]any

// Merge combines layers in precedence order. A resource present in an
// earlier layer is never replaced by a later one; later layers only fill
// gaps. Keys that are not numeric, or not in canonical decimal form such
// as "01", are ignored.
func Merge(layers ...map[string]any) Tree {
	tree := Tree{}
	for _, layer := range layers {
		for _, obj := range entries(layer) {
			for _, inst := range entries(obj.value) {
				for _, res := range entries(inst.value) {
					tree.setIfAbsent(obj.key, inst.key, res.key, res.value)
				}
			}
		}
	}
	return tree
}

func (t Tree) setIfAbsent(objectID, instanceID, resourceID uint16, spec any) {
	instances, ok := t[objectID]
	if !ok {
		instances = map[uint16]map[uint16]any{}
		t[objectID] = instances
	}
	resources, ok := instances[instanceID]
	if !ok {
		resources = map[uint16]any{}
		instances[instanceID] = resources
	}
	if _, exists := resources[resourceID]; !exists {
		resources[resourceID] = spec
	}
}

// Len returns the number of resources in the tree.
func (t Tree) Len() int {
	n := 0
	for _, instances := range t {
		for _, resources := range instances {
			n += len(resources)
		}
	}
	return n
}

type entry struct {
	key   uint16
	raw   string
	value any
}

// entries lists the numeric-keyed children of a map in ascending key order.
// Keys of different types naming the same id, as YAML allows, are ordered
// by their type so the first-writer rule picks the same one every time.
func entries(v any) []entry {
	var out []entry
	add := func(k any, val any) {
		if id, ok := numericKey(k); ok {
			out = append(out, entry{key: id, raw: fmt.Sprintf("%T", k), value: val})
		}
	}
	switch m := v.(type) {
	case map[string]any:
		for k, val := range m {
			add(k, val)
		}
	case map[any]any:
		for k, val := range m {
			add(k, val)
		}
	case map[int]any:
		for k, val := range m {
			add(k, val)
		}
	case map[uint16]any:
		for k, val := range m {
			add(k, val)
		}
	case map[uint16]map[uint16]any:
		for k, val := range m {
			add(k, val)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].key != out[j].key {
			return out[i].key < out[j].key
		}
		return out[i].raw < out[j].raw
	})
	return out
}

func numericKey(k any) (uint16, bool) {
	switch v := k.(type) {
	case string:
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil || strconv.FormatUint(n, 10) != v {
			return 0, false
		}
		return uint16(n), true
	case int:
		return uint16(v), v >= 0 && v <= math.MaxUint16
	case int64:
		return uint16(v), v >= 0 && v <= math.MaxUint16
	case uint64:
		return uint16(v), v <= math.MaxUint16
	case uint16:
		return v, true
	case float64:
		return uint16(v), v >= 0 && v <= math.MaxUint16 && v == math.Trunc(v)
	}
	return 0, false
}
