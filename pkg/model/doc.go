// Package model implements the LWM2M client resource model.
//
// # Addressing
//
// LWM2M organizes device state in a 3-level hierarchy:
//
//	Object > Object Instance > Resource
//
// Resources are addressed by URI:
//
//	/{objectId}/{instanceId}/{resourceId}
//
// Objects 0-3 (Security, Server, Access Control, Device) are default objects
// that are always present. Higher object ids are "extra" objects advertised
// separately to the transport.
//
// # Resources
//
// A Resource is a typed, permission-checked value cell. Its Kind selects the
// value representation:
//
//	STRING            string
//	INTEGER           int64
//	FLOAT             float64
//	BOOLEAN           bool
//	OPAQUE            []byte
//	OBJECT_LINK       ObjectLink
//	MULTIPLE_RESOURCE Instances (sub-index -> *Resource)
//	FUNCTION          no value, always executable
//
// A value may instead be backed by a Source, whose optional Get, Set, Init and
// Fini hooks connect the resource to live external state.
//
// # Access Control
//
// Each resource carries an ACL bitmask:
//   - R: Read
//   - W: Write
//   - E: Execute
//   - D: Delete
//   - C: Create
//
// Remote reads and writes are checked against the ACL; internal access
// bypasses it.
//
// # TLV
//
// Resources serialize to a length-prefixed binary form:
//
//	id:u16le kind:u8 len:u16le value[len]
//
// Multiple resources nest: value = count:u16le followed by count entries.
package model
