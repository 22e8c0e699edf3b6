package repository

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/lwm2m-go/lwm2m-client/pkg/model"
)

// ToJSONString serializes the repository as a versioned snapshot that Build
// accepts back as a source layer.
func (repo *Repository) ToJSONString() (string, error) {
	data, err := Encode(repo.Resources)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Encode serializes resources in the nested
// {version, objectId: {instanceId: {resourceId: resource}}} shape.
func Encode(resources map[model.URI]*model.Resource) ([]byte, error) {
	objects := map[string]map[string]map[string]*model.Resource{}
	for uri, r := range resources {
		obj := strconv.Itoa(int(uri.ObjectID))
		inst := strconv.Itoa(int(uri.InstanceID))
		if objects[obj] == nil {
			objects[obj] = map[string]map[string]*model.Resource{}
		}
		if objects[obj][inst] == nil {
			objects[obj][inst] = map[string]*model.Resource{}
		}
		objects[obj][inst][strconv.Itoa(int(uri.ResourceID))] = r
	}

	out := make(map[string]any, len(objects)+1)
	out["version"] = FormatVersion
	for k, v := range objects {
		out[k] = v
	}
	return json.Marshal(out)
}

// Decode parses a snapshot produced by Encode into a source layer.
// The version tag is dropped; Merge ignores non-numeric keys anyway.
func Decode(data []byte) (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	delete(m, "version")
	return m, nil
}
