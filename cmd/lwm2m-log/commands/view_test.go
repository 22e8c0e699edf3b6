package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

func TestFormatFrameEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size: 17,
			Data: []byte("/read:AQEDAAAAAAA="),
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[session:abc12345]",
		"IN ",
		"TRANSPORT Frame",
		"17 bytes",
		"Line: /read:AQEDAAAAAAA=",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}

func TestFormatBinaryFrame(t *testing.T) {
	event := log.Event{
		Frame: &log.FrameEvent{Size: 300, Data: []byte{0x01, 0xff}, Truncated: true},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	if !strings.Contains(buf.String(), "Data: 01ff (truncated)") {
		t.Errorf("expected hex data, got: %s", buf.String())
	}
}

func TestFormatResponseEvent(t *testing.T) {
	event := sampleEvents()[1]

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"OUT WIRE RESPONSE",
		"MessageID: 7",
		"Command: read",
		"Target: /3/0",
		"Status: NOT_FOUND (4.04)",
		"Duration: 150.000us",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}

func TestFormatObjectAndStateEvents(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[2])
	if !strings.Contains(buf.String(), "updated /1/0/1 (server 123)") {
		t.Errorf("unexpected object output: %s", buf.String())
	}

	buf.Reset()
	formatEvent(&buf, log.Event{
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityClient,
			OldState: "bootstrapping",
			NewState: "registering",
			Reason:   "bootstrap finished",
		},
	})
	output := buf.String()
	if !strings.Contains(output, "bootstrapping -> registering") || !strings.Contains(output, "Reason: bootstrap finished") {
		t.Errorf("unexpected state output: %s", output)
	}

	buf.Reset()
	formatEvent(&buf, log.Event{
		Category:   log.CategoryControl,
		ControlMsg: &log.ControlMsgEvent{Type: log.ControlMsgHeartbeat},
	})
	if !strings.Contains(buf.String(), "CTRL HEARTBEAT") {
		t.Errorf("unexpected control output: %s", buf.String())
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	out := func(filter ViewFilter) string {
		var buf bytes.Buffer
		if err := RunView(path, filter, &buf); err != nil {
			t.Fatalf("RunView failed: %v", err)
		}
		return buf.String()
	}

	all := out(ViewFilter{})
	if strings.Count(all, "[session:abc12345]") != 3 {
		t.Errorf("expected 3 events: %s", all)
	}

	dir := log.DirectionOut
	if got := out(ViewFilter{Direction: &dir}); strings.Count(got, "[session:") != 1 {
		t.Errorf("expected only the response: %s", got)
	}

	cat := log.CategoryObject
	if got := out(ViewFilter{Category: &cat}); !strings.Contains(got, "STORE Object") {
		t.Errorf("expected the object event: %s", got)
	}

	cmd := wire.CommandWrite
	if got := out(ViewFilter{Command: &cmd}); got != "" {
		t.Errorf("expected no write events: %s", got)
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("STORE"); err != nil || l != log.LayerStore {
		t.Errorf("ParseLayerFlag(STORE) = %v, %v", l, err)
	}
	if d, err := ParseDirectionFlag("out"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(out) = %v, %v", d, err)
	}
	if c, err := ParseCategoryFlag("object"); err != nil || c != log.CategoryObject {
		t.Errorf("ParseCategoryFlag(object) = %v, %v", c, err)
	}
	if c, err := ParseCommandFlag("readInstances"); err != nil || c != wire.CommandReadInstances {
		t.Errorf("ParseCommandFlag(readInstances) = %v, %v", c, err)
	}
	if _, err := ParseCommandFlag("bogus"); err == nil {
		t.Error("expected error for unknown command")
	}
}
