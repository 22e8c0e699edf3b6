package log

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

func TestEventPayloadsSurviveEncoding(t *testing.T) {
	ts := time.Date(2026, 3, 2, 8, 15, 32, 123456789, time.UTC)
	status := wire.StatusChanged
	elapsed := 1500 * time.Microsecond
	code := int(wire.StatusBadRequest)

	tests := []struct {
		name  string
		event Event
	}{
		{"header only", Event{
			SessionID: "abc12345-def6-7890-abcd-ef1234567890", Direction: DirectionOut,
			Layer: LayerWire, ClientName: "urn:dev:os:001", ServerID: 123,
		}},
		{"frame", Event{Layer: LayerTransport, Frame: &FrameEvent{
			Size: 42, Data: []byte("/read:AQEDAAAAAAA="), Truncated: true,
		}}},
		{"response", Event{Layer: LayerWire, Message: &MessageEvent{
			Type: MessageTypeResponse, MessageID: 7, Command: wire.CommandWrite,
			ObjectID: 1, InstanceID: 0, Count: 2, Status: &status, ProcessingTime: &elapsed,
		}}},
		{"state", Event{Category: CategoryState, StateChange: &StateChangeEvent{
			Entity: StateEntityCredentials, OldState: "BOOTSTRAPPING", NewState: "REGISTERING", Reason: "bootstrap finished",
		}}},
		{"object", Event{Category: CategoryObject, Object: &ObjectEvent{URI: "/3/0/1", Type: "updated", Remote: true}}},
		{"error", Event{Category: CategoryError, Error: &ErrorEventData{
			Layer: LayerTransport, Message: "malformed transport line", Code: &code, Context: "parse line",
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.event.Timestamp = ts
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent: %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent: %v", err)
			}
			if !got.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
			}
			got.Timestamp = ts
			if !reflect.DeepEqual(got, tt.event) {
				t.Errorf("got %+v\nwant %+v", got, tt.event)
			}
		})
	}
}

func TestEventEncodingUsesIntegerKeys(t *testing.T) {
	data, err := EncodeEvent(Event{Timestamp: time.Now(), SessionID: "s", Direction: DirectionOut})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	var keyed map[uint64]any
	if err := decMode.Unmarshal(data, &keyed); err != nil {
		t.Fatalf("decode as integer map: %v", err)
	}
	for _, k := range []uint64{1, 2, 3, 4, 5} {
		if _, ok := keyed[k]; !ok {
			t.Errorf("key %d missing", k)
		}
	}
	if _, ok := keyed[6]; ok {
		t.Error("empty ClientName should be omitted")
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00, 0x13}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
}
