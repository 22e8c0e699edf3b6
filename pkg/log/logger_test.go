package log

import "testing"

// mockLogger records events.
type mockLogger struct {
	events []Event
}

func (m *mockLogger) Log(event Event) {
	m.events = append(m.events, event)
}

func TestNoopLoggerAcceptsEveryPayload(t *testing.T) {
	var l NoopLogger
	for _, e := range []Event{
		{},
		{Frame: &FrameEvent{Size: 3}},
		{Message: &MessageEvent{Type: MessageTypeResponse}},
		{StateChange: &StateChangeEvent{NewState: "BOOTSTRAPPING"}},
		{ControlMsg: &ControlMsgEvent{}},
		{Error: &ErrorEventData{Message: "boom"}},
		{Object: &ObjectEvent{URI: "/1/0"}},
	} {
		l.Log(e)
	}
}

func TestLoggerFunc(t *testing.T) {
	var got []string
	l := LoggerFunc(func(e Event) { got = append(got, e.SessionID) })

	l.Log(Event{SessionID: "a"})
	l.Log(Event{SessionID: "b"})

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	m := &mockLogger{}
	if OrNoop(m) != Logger(m) {
		t.Error("OrNoop should return a non-nil logger unchanged")
	}
}
