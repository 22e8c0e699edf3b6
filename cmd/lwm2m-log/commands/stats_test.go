package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
)

func TestStatsSummary(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 33, 0, time.UTC)
	events := append(sampleEvents(),
		log.Event{
			Timestamp: ts,
			SessionID: "abc12345-6789",
			Layer:     log.LayerService,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityClient,
				OldState: "registering",
				NewState: "connected",
			},
		},
		log.Event{
			Timestamp:  ts,
			SessionID:  "abc12345-6789",
			Layer:      log.LayerService,
			Category:   log.CategoryControl,
			ControlMsg: &log.ControlMsgEvent{Type: log.ControlMsgHeartbeat},
		},
		log.Event{
			Timestamp: ts,
			SessionID: "other-session",
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Layer: log.LayerTransport, Message: "malformed line"},
		},
	)

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 6",
		"WIRE:",
		"STORE:",
		"OBJECT:",
		"read:",
		"4.04 NOT_FOUND:",
		"Sessions: 2",
		"[abc12345]",
		"Last state: connected",
		"Heartbeats: 1",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
