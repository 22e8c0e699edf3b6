package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

// Stats aggregates a capture.
type Stats struct {
	TotalEvents int
	Errors      int
	First, Last time.Time

	ByLayer     map[log.Layer]int
	ByCategory  map[log.Category]int
	ByDirection map[log.Direction]int

	// Requests counts requests per command; FailedResponses counts
	// responses per non-success status.
	Requests        map[wire.Command]int
	FailedResponses map[wire.Status]int

	Sessions map[string]*SessionStats
}

// SessionStats covers one client run.
type SessionStats struct {
	ID          string
	First, Last time.Time
	Events      int
	ClientName  string
	LastState   string
	Heartbeats  int
}

func newStats() *Stats {
	return &Stats{
		ByLayer:         map[log.Layer]int{},
		ByCategory:      map[log.Category]int{},
		ByDirection:     map[log.Direction]int{},
		Requests:        map[wire.Command]int{},
		FailedResponses: map[wire.Status]int{},
		Sessions:        map[string]*SessionStats{},
	}
}

// RunStats summarizes the capture at path to w.
func RunStats(path string, w io.Writer) error {
	s := newStats()
	if err := each(path, log.Filter{}, func(e log.Event) error {
		s.add(e)
		return nil
	}); err != nil {
		return err
	}
	s.print(w)
	return nil
}

func (s *Stats) add(e log.Event) {
	s.TotalEvents++
	s.ByLayer[e.Layer]++
	s.ByCategory[e.Category]++
	s.ByDirection[e.Direction]++
	if s.First.IsZero() || e.Timestamp.Before(s.First) {
		s.First = e.Timestamp
	}
	if e.Timestamp.After(s.Last) {
		s.Last = e.Timestamp
	}

	sess := s.Sessions[e.SessionID]
	if sess == nil {
		sess = &SessionStats{ID: e.SessionID, First: e.Timestamp, Last: e.Timestamp}
		s.Sessions[e.SessionID] = sess
	}
	sess.Events++
	if e.Timestamp.After(sess.Last) {
		sess.Last = e.Timestamp
	}
	if sess.ClientName == "" {
		sess.ClientName = e.ClientName
	}

	switch {
	case e.Message != nil && e.Message.Type == log.MessageTypeRequest:
		s.Requests[e.Message.Command]++
	case e.Message != nil:
		if st := e.Message.Status; st != nil && st.IsError() {
			s.FailedResponses[*st]++
		}
	case e.StateChange != nil && e.StateChange.Entity == log.StateEntityClient:
		sess.LastState = e.StateChange.NewState
	case e.ControlMsg != nil && e.ControlMsg.Type == log.ControlMsgHeartbeat:
		sess.Heartbeats++
	case e.Error != nil:
		s.Errors++
	}
}

// countSection prints title and one "name: n" row per non-zero key, in
// the order given.
func countSection[K comparable](w io.Writer, title string, counts map[K]int, order []K, name func(K) string) {
	fmt.Fprintln(w, title+":")
	for _, k := range order {
		if n := counts[k]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", name(k)+":", n)
		}
	}
	fmt.Fprintln(w)
}

func stringOf[K fmt.Stringer](k K) string { return k.String() }

func (s *Stats) print(w io.Writer) {
	fmt.Fprintln(w, "=== LWM2M Client Log Statistics ===")
	fmt.Fprintln(w)
	if s.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", s.First.Format(time.RFC3339), s.Last.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n\n", s.Last.Sub(s.First).Round(time.Second))
	}
	fmt.Fprintf(w, "Total Events: %d\n\n", s.TotalEvents)

	countSection(w, "Events by Layer", s.ByLayer,
		[]log.Layer{log.LayerTransport, log.LayerWire, log.LayerService, log.LayerStore}, stringOf[log.Layer])
	countSection(w, "Events by Category", s.ByCategory,
		[]log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError, log.CategoryObject},
		stringOf[log.Category])
	countSection(w, "Events by Direction", s.ByDirection,
		[]log.Direction{log.DirectionIn, log.DirectionOut}, stringOf[log.Direction])

	if len(s.Requests) > 0 {
		var cmds []wire.Command
		for c := wire.CommandRead; c <= wire.CommandHeartbeat; c++ {
			cmds = append(cmds, c)
		}
		countSection(w, "Requests by Command", s.Requests, cmds, stringOf[wire.Command])
	}

	if len(s.FailedResponses) > 0 {
		statuses := make([]wire.Status, 0, len(s.FailedResponses))
		for st := range s.FailedResponses {
			statuses = append(statuses, st)
		}
		sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
		fmt.Fprintln(w, "Failed Responses:")
		for _, st := range statuses {
			fmt.Fprintf(w, "  %s %-20s %d\n", st.Dotted(), st.String()+":", s.FailedResponses[st])
		}
		fmt.Fprintln(w)
	}

	s.printSessions(w)
	if s.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", s.Errors)
	}
}

func (s *Stats) printSessions(w io.Writer) {
	fmt.Fprintf(w, "Sessions: %d\n", len(s.Sessions))
	if len(s.Sessions) == 0 {
		return
	}
	runs := make([]*SessionStats, 0, len(s.Sessions))
	for _, ss := range s.Sessions {
		runs = append(runs, ss)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].First.Before(runs[j].First) })

	fmt.Fprintln(w)
	const indent = "           "
	for _, r := range runs {
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n",
			shortenSessionID(r.ID), r.Events, r.Last.Sub(r.First).Round(time.Millisecond))
		if r.ClientName != "" {
			fmt.Fprintf(w, "%sClient: %s\n", indent, r.ClientName)
		}
		if r.LastState != "" {
			fmt.Fprintf(w, "%sLast state: %s\n", indent, r.LastState)
		}
		if r.Heartbeats > 0 {
			fmt.Fprintf(w, "%sHeartbeats: %d\n", indent, r.Heartbeats)
		}
	}
}
