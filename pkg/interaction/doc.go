// Package interaction turns transport commands into store operations.
//
// The transport delivers (command, payload) pairs. CRUD commands carry a
// fixed little-endian header followed by a command-specific body:
//
//   - read, discover: requested resource ids (none means the whole instance)
//   - write, create: TLV resource entries
//   - execute: resource id, then the argument bytes
//   - delete, readInstances, backup, restore: header only
//   - observe: optional header, no body
//
// Every request is answered with a response that echoes the header and
// carries a status byte; failures zero the resource count and never escape
// as errors. The stateChanged and heartbeat notifications update the client
// state machine and are never answered. Unknown commands are ignored.
//
// # Usage
//
//	d := interaction.NewDispatcher(st, interaction.Config{ServerID: 123})
//	d.OnState(func(e interaction.StateEvent) {
//	    slog.Info("client state", "state", e.State)
//	})
//
//	resp, ok := d.Handle(ctx, "read", payload)
//	if ok {
//	    fmt.Println(wire.FormatResponse("read", resp))
//	}
//
// Handle is safe for concurrent use; requests are processed one at a time
// in arrival order.
package interaction
