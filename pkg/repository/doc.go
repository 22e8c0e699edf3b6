// Package repository builds the resource repository a client starts with.
//
// Object definitions arrive as nested maps shaped
// {objectId: {instanceId: {resourceId: spec}}} from several layers: stored
// credentials, object definition files, a previous snapshot and the built-in
// default objects. Layers are merged first writer wins at resource
// granularity, every leaf is resolved into a model.Resource in parallel, and
// the Security, Server and Access Control objects are then overlaid with the
// live connection options unless stored credentials were used.
package repository
