package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

// ViewFilter narrows the view command. Nil fields match everything.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	Command   *wire.Command
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{Layer: f.Layer, Direction: f.Direction, Category: f.Category, Command: f.Command}
}

// RunView prints every matching event in path to out.
func RunView(path string, filter ViewFilter, out io.Writer) error {
	return each(path, filter.logFilter(), func(e log.Event) error {
		formatEvent(out, e)
		return nil
	})
}

// formatEvent prints a header line followed by indented payload details
// and a blank separator line.
func formatEvent(w io.Writer, e log.Event) {
	layer := e.Layer.String()
	if e.Category == log.CategoryControl {
		layer = "CTRL"
	}
	fmt.Fprintf(w, "%s [session:%s] %-3s %s %s\n",
		e.Timestamp.UTC().Format(timestampLayout), shortenSessionID(e.SessionID),
		e.Direction.String(), layer, kind(e))

	d := details{w}
	switch {
	case e.Frame != nil:
		d.frame(e.Frame)
	case e.Message != nil:
		d.message(e.Message)
	case e.StateChange != nil:
		d.state(e.StateChange)
	case e.Object != nil:
		origin := "local"
		if e.Object.Remote {
			origin = fmt.Sprintf("server %d", e.ServerID)
		}
		d.line("%s %s (%s)", e.Object.Type, e.Object.URI, origin)
	case e.Error != nil:
		d.failure(e.Error)
	}
	fmt.Fprintln(w)
}

type details struct{ w io.Writer }

func (d details) line(format string, args ...any) {
	fmt.Fprintf(d.w, "  "+format+"\n", args...)
}

func (d details) frame(f *log.FrameEvent) {
	d.line("Size: %d bytes", f.Size)
	if len(f.Data) == 0 {
		return
	}
	label, body := "Line", string(f.Data)
	if !printable(f.Data) {
		label, body = "Data", hex.EncodeToString(f.Data)
	}
	if f.Truncated {
		body += " (truncated)"
	}
	d.line("%s: %s", label, body)
}

func (d details) message(m *log.MessageEvent) {
	d.line("MessageID: %d", m.MessageID)
	d.line("Command: %s", m.Command)
	d.line("Target: /%d/%d  Count: %d", m.ObjectID, m.InstanceID, m.Count)
	if m.Type != log.MessageTypeResponse {
		return
	}
	if m.Status != nil {
		d.line("Status: %s (%s)", m.Status, m.Status.Dotted())
	}
	if m.ProcessingTime != nil {
		d.line("Duration: %s", formatDuration(*m.ProcessingTime))
	}
}

func (d details) state(s *log.StateChangeEvent) {
	d.line("Entity: %s", s.Entity)
	if s.OldState == "" {
		d.line("-> %s", s.NewState)
	} else {
		d.line("%s -> %s", s.OldState, s.NewState)
	}
	if s.Reason != "" {
		d.line("Reason: %s", s.Reason)
	}
}

func (d details) failure(e *log.ErrorEventData) {
	d.line("Layer: %s", e.Layer)
	d.line("Message: %s", e.Message)
	if e.Code != nil {
		d.line("Code: %d", *e.Code)
	}
	if e.Context != "" {
		d.line("Context: %s", e.Context)
	}
}

// printable reports whether data is a single line of printable ASCII.
func printable(data []byte) bool {
	for _, b := range data {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}

// formatDuration uses a fixed three decimals in the largest unit that
// keeps the value at or above one.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.3fus", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
