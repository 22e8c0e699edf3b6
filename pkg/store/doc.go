// Package store holds the live resource table of a client.
//
// A Store owns the repository built at startup and serves pattern-addressed
// reads and CRUD operations on it. Patterns are regular expressions matched
// against "/objectId/instanceId/resourceId" URIs and are anchored
// automatically. Remote operations (a non-zero owner id, or remote=true)
// are subject to resource ACLs.
//
// Operations issued before a repository is installed wait for it, polling
// at Config.RetryInterval, until the context is cancelled or
// Config.MaxRetries is exhausted.
//
// Every successful mutation is reported to event handlers, and writes and
// creates are tracked until ConsumeUpdated drains them.
package store
