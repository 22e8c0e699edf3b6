// Package persistence keeps a repository snapshot on disk so that resource
// values survive client restarts.
//
// The snapshot is the versioned JSON document produced by
// repository.Encode. On start it is loaded back as a source layer above the
// object definition files and the built-in defaults.
package persistence
