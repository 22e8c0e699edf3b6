package interaction

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
	"github.com/lwm2m-go/lwm2m-client/pkg/model"
	"github.com/lwm2m-go/lwm2m-client/pkg/store"
	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

// patterns returns one exact pattern per requested id, or the whole
// instance when none are requested.
func patterns(req *wire.Request) ([]string, error) {
	ids, err := req.ResourceIDs()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{model.InstancePattern(req.ObjectID, req.InstanceID)}, nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = model.ExactPattern(model.URI{ObjectID: req.ObjectID, InstanceID: req.InstanceID, ResourceID: id})
	}
	return out, nil
}

// handleRead serializes every matched resource as TLV.
func (d *Dispatcher) handleRead(ctx context.Context, req *wire.Request) *wire.Response {
	resp := wire.NewResponse(req)

	pats, err := patterns(req)
	if err != nil {
		return d.fail(ctx, wire.CommandRead, resp, err, wire.StatusInternalServerError)
	}
	entries, err := d.store.RemoteGet(ctx, pats)
	if err != nil {
		return d.fail(ctx, wire.CommandRead, resp, err, wire.StatusBadRequest)
	}
	if len(entries) == 1 && !entries[0].Resource.IsReadable() {
		err := model.MethodNotAllowed("resource %s is not readable", entries[0].URI)
		return d.fail(ctx, wire.CommandRead, resp, err, wire.StatusMethodNotAllowed)
	}

	var body []byte
	var count uint16
	for _, e := range entries {
		before := len(body)
		if body, err = e.Resource.Serialize(ctx, body); err != nil {
			return d.fail(ctx, wire.CommandRead, resp, fmt.Errorf("serialize %s: %w", e.URI, err), wire.StatusInternalServerError)
		}
		if len(body) > before {
			count++
		}
	}

	resp.Status = wire.StatusContent
	resp.Count = count
	resp.Body = body
	return resp
}

// handleWrite applies TLV entries with write or create semantics.
func (d *Dispatcher) handleWrite(ctx context.Context, req *wire.Request, create bool) *wire.Response {
	cmd, success := wire.CommandWrite, wire.StatusChanged
	if create {
		cmd, success = wire.CommandCreate, wire.StatusCreated
	}
	resp := wire.NewResponse(req)

	values := make(map[uint16]*model.Resource, req.Count)
	rest := req.Body
	for i := 0; i < int(req.Count); i++ {
		var err error
		if rest, err = model.Parse(values, rest); err != nil {
			return d.fail(ctx, cmd, resp, err, wire.StatusInternalServerError)
		}
	}

	params := make([]store.Param, 0, len(values))
	for id, r := range values {
		params = append(params, store.Param{
			URI:   model.URI{ObjectID: req.ObjectID, InstanceID: req.InstanceID, ResourceID: id},
			Value: r,
		})
	}

	var err error
	if create {
		err = d.store.RemoteCreate(ctx, params, d.config.ServerID)
	} else {
		err = d.store.RemoteWrite(ctx, params, d.config.ServerID)
	}
	if err != nil {
		return d.fail(ctx, cmd, resp, err, wire.StatusBadRequest)
	}

	resp.Status = success
	resp.Count = uint16(len(params))
	return resp
}

// handleExecute runs one executable resource with the trailing argument.
func (d *Dispatcher) handleExecute(ctx context.Context, req *wire.Request) *wire.Response {
	resp := wire.NewResponse(req)
	if len(req.Body) < 2 {
		err := fmt.Errorf("%w: execute needs a resource id", wire.ErrShortPayload)
		return d.fail(ctx, wire.CommandExecute, resp, err, wire.StatusInternalServerError)
	}

	id := binary.LittleEndian.Uint16(req.Body)
	var arg []byte
	if len(req.Body) > 2 {
		arg = append([]byte(nil), req.Body[2:]...)
	}
	param := store.Param{URI: model.URI{ObjectID: req.ObjectID, InstanceID: req.InstanceID, ResourceID: id}}
	if arg != nil {
		param.Value = arg
	}

	if err := d.store.RemoteExecute(ctx, []store.Param{param}, d.config.ServerID); err != nil {
		return d.fail(ctx, wire.CommandExecute, resp, err, wire.StatusBadRequest)
	}
	resp.Status = wire.StatusChanged
	resp.Count = 1
	return resp
}

// handleDelete removes every deletable resource of the instance.
func (d *Dispatcher) handleDelete(ctx context.Context, req *wire.Request) *wire.Response {
	resp := wire.NewResponse(req)
	pattern := model.InstancePattern(req.ObjectID, req.InstanceID)
	if err := d.store.RemoteDelete(ctx, []string{pattern}); err != nil {
		return d.fail(ctx, wire.CommandDelete, resp, err, wire.StatusBadRequest)
	}
	resp.Status = wire.StatusDeleted
	return resp
}

// handleDiscover lists the matched resource ids without values.
func (d *Dispatcher) handleDiscover(ctx context.Context, req *wire.Request) *wire.Response {
	resp := wire.NewResponse(req)

	pats, err := patterns(req)
	if err != nil {
		return d.fail(ctx, wire.CommandDiscover, resp, err, wire.StatusInternalServerError)
	}
	entries, err := d.store.RemoteGet(ctx, pats)
	if err != nil {
		return d.fail(ctx, wire.CommandDiscover, resp, err, wire.StatusBadRequest)
	}

	ids := make([]uint16, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.URI.ResourceID)
	}
	resp.Status = wire.StatusContent
	resp.AppendUint16s(sortedUnique(ids))
	return resp
}

// handleObserve drains the changed URIs. With no changes nothing is sent.
func (d *Dispatcher) handleObserve(ctx context.Context, req *wire.Request) *wire.Response {
	resp := wire.NewResponse(req)
	changed := d.store.ConsumeUpdated()
	if len(changed) == 0 {
		resp.Status = wire.StatusIgnore
		return resp
	}

	for _, u := range changed {
		resp.Body = binary.LittleEndian.AppendUint16(resp.Body, u.ObjectID)
		resp.Body = binary.LittleEndian.AppendUint16(resp.Body, u.InstanceID)
		resp.Body = binary.LittleEndian.AppendUint16(resp.Body, u.ResourceID)
	}
	resp.Status = wire.StatusContent
	resp.Count = uint16(len(changed))
	d.logger.DebugContext(ctx, "observe drained", "changed", len(changed))
	return resp
}

// handleReadInstances lists the instance ids of an object.
func (d *Dispatcher) handleReadInstances(ctx context.Context, req *wire.Request) *wire.Response {
	resp := wire.NewResponse(req)
	entries, err := d.store.Get(ctx, model.ObjectPattern(req.ObjectID), false)
	if err != nil {
		return d.fail(ctx, wire.CommandReadInstances, resp, err, wire.StatusBadRequest)
	}

	ids := make([]uint16, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.URI.InstanceID)
	}
	resp.Status = wire.StatusContent
	resp.AppendUint16s(sortedUnique(ids))
	return resp
}

func (d *Dispatcher) handleBackup(ctx context.Context, req *wire.Request) *wire.Response {
	resp := wire.NewResponse(req)
	if err := d.store.Backup(ctx, req.ObjectID); err != nil {
		return d.fail(ctx, wire.CommandBackup, resp, err, wire.StatusBadRequest)
	}
	resp.Status = wire.StatusChanged
	return resp
}

func (d *Dispatcher) handleRestore(ctx context.Context, req *wire.Request) *wire.Response {
	resp := wire.NewResponse(req)
	if err := d.store.Restore(ctx, req.ObjectID); err != nil {
		return d.fail(ctx, wire.CommandRestore, resp, err, wire.StatusBadRequest)
	}
	resp.Status = wire.StatusChanged
	return resp
}

func (d *Dispatcher) handleStateChanged(ctx context.Context, body []byte) {
	next, ok := ParseState(body)
	if !ok {
		d.logger.WarnContext(ctx, "unknown client state", "state", string(body))
		return
	}
	d.setState(ctx, next, "")
}

func (d *Dispatcher) handleHeartbeat(ctx context.Context) {
	now := d.timeNow()
	d.stateMu.Lock()
	d.lastHeartbeat = now
	d.stateMu.Unlock()

	d.logger.DebugContext(ctx, "heartbeat")
	d.plog.Log(log.Event{
		Timestamp:  now,
		SessionID:  d.config.SessionID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerTransport,
		Category:   log.CategoryControl,
		ControlMsg: &log.ControlMsgEvent{Type: log.ControlMsgHeartbeat},
	})
}

func sortedUnique(ids []uint16) []uint16 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}
