// Package log captures a machine-readable trace of everything the client
// does on the wire.
//
// Protocol capture is distinct from operational logging: slog carries
// human-oriented diagnostics, while a Logger receives one Event per
// command line, decoded request or response, state transition, heartbeat
// and resource mutation. Sinks are interchangeable:
//
//	fl, err := log.NewFileLogger("/var/lib/lwm2m/capture.mlog")
//	...
//	opts.ProtocolLogger = log.Combine(fl, log.NewSlogAdapter(slog.Default()))
//
// Components accept a nil Logger and substitute OrNoop(nil).
//
// Capture files are a plain concatenation of CBOR-encoded events with
// integer map keys. Reader streams them back with optional filtering and
// the lwm2m-log command views, exports, filters and summarizes them.
package log
