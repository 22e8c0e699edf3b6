package interaction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
	"github.com/lwm2m-go/lwm2m-client/pkg/model"
	"github.com/lwm2m-go/lwm2m-client/pkg/store"
	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

// RequestObserver is notified after every answered request.
type RequestObserver interface {
	ObserveRequest(cmd wire.Command, status wire.Status, elapsed time.Duration)
}

// Config configures a Dispatcher.
type Config struct {
	// ServerID is the short server id remote operations act for. It must be
	// non-zero for resource ACLs to apply.
	ServerID uint16

	// SessionID tags protocol log events.
	SessionID string

	Logger         *slog.Logger
	ProtocolLogger log.Logger
	Observer       RequestObserver
}

// Dispatcher decodes transport commands and applies them to a store.
type Dispatcher struct {
	store  *store.Store
	config Config
	logger *slog.Logger
	plog   log.Logger

	// mu serializes request handling.
	mu sync.Mutex

	stateMu       sync.RWMutex
	state         State
	lastHeartbeat time.Time
	stateHandlers []StateHandler

	// timeNow returns the current time. Defaults to time.Now.
	timeNow func() time.Time
}

// NewDispatcher creates a dispatcher over st.
func NewDispatcher(st *store.Store, config Config) *Dispatcher {
	d := &Dispatcher{
		store:   st,
		config:  config,
		logger:  config.Logger,
		plog:    log.OrNoop(config.ProtocolLogger),
		timeNow: time.Now,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Handle processes one command. It returns the encoded response and true,
// or nil and false when nothing must be sent back.
func (d *Dispatcher) Handle(ctx context.Context, command string, payload []byte) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmd := wire.ParseCommand(command)
	switch cmd {
	case wire.CommandStateChanged:
		d.handleStateChanged(ctx, payload)
		return nil, false
	case wire.CommandHeartbeat:
		d.handleHeartbeat(ctx)
		return nil, false
	case wire.CommandUnknown:
		d.logger.DebugContext(ctx, "ignoring unknown command", "command", command)
		return nil, false
	}

	start := d.timeNow()
	req, err := decodeRequest(cmd, payload)
	if err != nil {
		resp := wire.NewResponse(req)
		d.fail(ctx, cmd, resp, err, wire.StatusInternalServerError)
		return d.finish(cmd, resp, start), true
	}
	d.logRequest(cmd, req)

	resp := d.dispatch(ctx, cmd, req)
	if resp.Status == wire.StatusIgnore {
		return nil, false
	}
	return d.finish(cmd, resp, start), true
}

// HandleLine processes one transport line "/{command}:{base64}" and returns
// the framed response line.
func (d *Dispatcher) HandleLine(ctx context.Context, line string) (string, bool) {
	command, payload, err := wire.ParseLine(line)
	if err != nil {
		d.logger.WarnContext(ctx, "dropping transport line", "error", err)
		d.plog.Log(log.Event{
			Timestamp: d.timeNow(),
			SessionID: d.config.SessionID,
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Layer: log.LayerTransport, Message: err.Error(), Context: "parse line"},
		})
		return "", false
	}
	resp, ok := d.Handle(ctx, command, payload)
	if !ok {
		return "", false
	}
	return wire.FormatResponse(command, resp), true
}

// dispatch routes a decoded request to its handler.
func (d *Dispatcher) dispatch(ctx context.Context, cmd wire.Command, req *wire.Request) *wire.Response {
	switch cmd {
	case wire.CommandRead:
		return d.handleRead(ctx, req)
	case wire.CommandWrite:
		return d.handleWrite(ctx, req, false)
	case wire.CommandCreate:
		return d.handleWrite(ctx, req, true)
	case wire.CommandExecute:
		return d.handleExecute(ctx, req)
	case wire.CommandDelete:
		return d.handleDelete(ctx, req)
	case wire.CommandDiscover:
		return d.handleDiscover(ctx, req)
	case wire.CommandObserve:
		return d.handleObserve(ctx, req)
	case wire.CommandReadInstances:
		return d.handleReadInstances(ctx, req)
	case wire.CommandBackup:
		return d.handleBackup(ctx, req)
	case wire.CommandRestore:
		return d.handleRestore(ctx, req)
	default:
		resp := wire.NewResponse(req)
		resp.Status = wire.StatusIgnore
		return resp
	}
}

// decodeRequest decodes the request header. Observe may arrive without one.
func decodeRequest(cmd wire.Command, payload []byte) (*wire.Request, error) {
	if cmd == wire.CommandObserve && len(payload) < wire.RequestHeaderSize {
		req := &wire.Request{Direction: wire.DirectionRequest}
		if len(payload) > 1 {
			req.MessageID = payload[1]
		}
		return req, nil
	}
	req, err := wire.DecodeRequest(payload)
	if err != nil {
		partial := &wire.Request{}
		if len(payload) > 1 {
			partial.MessageID = payload[1]
		}
		return partial, err
	}
	return req, nil
}

// fail maps err to a response status, using fallback when err carries none.
func (d *Dispatcher) fail(ctx context.Context, cmd wire.Command, resp *wire.Response, err error, fallback wire.Status) *wire.Response {
	status := model.StatusOf(err, fallback)
	d.logger.DebugContext(ctx, "request failed",
		"command", cmd.String(),
		"msg_id", resp.MessageID,
		"status", status.String(),
		"error", err)
	return resp.Fail(status)
}

func (d *Dispatcher) finish(cmd wire.Command, resp *wire.Response, start time.Time) []byte {
	elapsed := d.timeNow().Sub(start)
	status := resp.Status
	d.plog.Log(log.Event{
		Timestamp: d.timeNow(),
		SessionID: d.config.SessionID,
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		ServerID:  d.config.ServerID,
		Message: &log.MessageEvent{
			Type:           log.MessageTypeResponse,
			Command:        cmd,
			MessageID:      resp.MessageID,
			ObjectID:       resp.ObjectID,
			InstanceID:     resp.InstanceID,
			Count:          resp.Count,
			Status:         &status,
			ProcessingTime: &elapsed,
		},
	})
	if d.config.Observer != nil {
		d.config.Observer.ObserveRequest(cmd, status, elapsed)
	}
	return resp.Encode()
}

func (d *Dispatcher) logRequest(cmd wire.Command, req *wire.Request) {
	d.plog.Log(log.Event{
		Timestamp: d.timeNow(),
		SessionID: d.config.SessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		ServerID:  d.config.ServerID,
		Message: &log.MessageEvent{
			Type:       log.MessageTypeRequest,
			Command:    cmd,
			MessageID:  req.MessageID,
			ObjectID:   req.ObjectID,
			InstanceID: req.InstanceID,
			Count:      req.Count,
		},
	})
}

// OnState registers a state transition handler.
func (d *Dispatcher) OnState(h StateHandler) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.stateHandlers = append(d.stateHandlers, h)
}

// State returns the current client state.
func (d *Dispatcher) State() State {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state
}

// LastHeartbeat returns when the last heartbeat arrived, or the zero time.
func (d *Dispatcher) LastHeartbeat() time.Time {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.lastHeartbeat
}

// Disconnect moves the client to StateDisconnected.
func (d *Dispatcher) Disconnect(ctx context.Context, reason string) {
	d.setState(ctx, StateDisconnected, reason)
}

func (d *Dispatcher) setState(ctx context.Context, next State, reason string) {
	d.stateMu.Lock()
	prev := d.state
	d.state = next
	handlers := d.stateHandlers
	d.stateMu.Unlock()

	now := d.timeNow()
	d.logger.InfoContext(ctx, "client state changed", "state", next.String(), "previous", prev.String())
	d.plog.Log(log.Event{
		Timestamp: now,
		SessionID: d.config.SessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityClient,
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})

	e := StateEvent{State: next, Previous: prev, Timestamp: now}
	for _, h := range handlers {
		h(e)
	}
}
