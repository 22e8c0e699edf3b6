package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors protocol events into an slog.Logger. Error events
// are emitted at Warn, everything else at Debug, so a console handler
// at Info stays quiet until something fails.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log implements Logger.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	if event.Error != nil {
		level = slog.LevelWarn
	}
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}
	a.logger.LogAttrs(ctx, level, "lwm2m "+event.Category.String(), eventAttrs(event)...)
}

func eventAttrs(e Event) []slog.Attr {
	out := make([]slog.Attr, 0, 12)
	out = append(out,
		slog.String("session_id", e.SessionID),
		slog.String("direction", e.Direction.String()),
		slog.String("layer", e.Layer.String()),
		slog.String("category", e.Category.String()),
	)
	if e.ClientName != "" {
		out = append(out, slog.String("client", e.ClientName))
	}
	if e.ServerID != 0 {
		out = append(out, slog.Uint64("server_id", uint64(e.ServerID)))
	}

	switch {
	case e.Frame != nil:
		return append(out, frameAttrs(e.Frame)...)
	case e.Message != nil:
		return append(out, messageAttrs(e.Message)...)
	case e.StateChange != nil:
		return append(out, stateAttrs(e.StateChange)...)
	case e.ControlMsg != nil:
		return append(out, slog.String("ctrl_type", e.ControlMsg.Type.String()))
	case e.Object != nil:
		return append(out,
			slog.String("uri", e.Object.URI),
			slog.String("event", e.Object.Type),
			slog.Bool("remote", e.Object.Remote),
		)
	case e.Error != nil:
		return append(out, errorAttrs(e.Error)...)
	}
	return out
}

func frameAttrs(f *FrameEvent) []slog.Attr {
	return []slog.Attr{
		slog.Int("frame_size", f.Size),
		slog.Bool("truncated", f.Truncated),
	}
}

func messageAttrs(m *MessageEvent) []slog.Attr {
	attrs := []slog.Attr{
		slog.Uint64("msg_id", uint64(m.MessageID)),
		slog.String("msg_type", m.Type.String()),
		slog.String("command", m.Command.String()),
		slog.Uint64("object", uint64(m.ObjectID)),
		slog.Uint64("instance", uint64(m.InstanceID)),
	}
	if m.Count > 0 {
		attrs = append(attrs, slog.Uint64("count", uint64(m.Count)))
	}
	if m.Status != nil {
		attrs = append(attrs, slog.String("status", m.Status.String()))
	}
	if m.ProcessingTime != nil {
		attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
	}
	return attrs
}

func stateAttrs(s *StateChangeEvent) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("entity", s.Entity.String()),
		slog.String("old_state", s.OldState),
		slog.String("new_state", s.NewState),
	}
	if s.Reason != "" {
		attrs = append(attrs, slog.String("reason", s.Reason))
	}
	return attrs
}

func errorAttrs(e *ErrorEventData) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("error_layer", e.Layer.String()),
		slog.String("error_msg", e.Message),
	}
	if e.Context != "" {
		attrs = append(attrs, slog.String("error_context", e.Context))
	}
	if e.Code != nil {
		attrs = append(attrs, slog.Int("error_code", *e.Code))
	}
	return attrs
}

var _ Logger = (*SlogAdapter)(nil)
