package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestStatusValues(t *testing.T) {
	tests := []struct {
		status Status
		want   uint8
		dotted string
		name   string
	}{
		{StatusContent, 0x45, "2.05", "CONTENT"},
		{StatusChanged, 0x44, "2.04", "CHANGED"},
		{StatusCreated, 0x41, "2.01", "CREATED"},
		{StatusDeleted, 0x42, "2.02", "DELETED"},
		{StatusBadRequest, 0x80, "4.00", "BAD_REQUEST"},
		{StatusUnauthorized, 0x81, "4.01", "UNAUTHORIZED"},
		{StatusNotFound, 0x84, "4.04", "NOT_FOUND"},
		{StatusMethodNotAllowed, 0x85, "4.05", "METHOD_NOT_ALLOWED"},
		{StatusInternalServerError, 0xA0, "5.00", "INTERNAL_SERVER_ERROR"},
		{StatusNotImplemented, 0xA1, "5.01", "NOT_IMPLEMENTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if uint8(tt.status) != tt.want {
				t.Errorf("value = 0x%02X, want 0x%02X", uint8(tt.status), tt.want)
			}
			if got := tt.status.Dotted(); got != tt.dotted {
				t.Errorf("Dotted() = %q, want %q", got, tt.dotted)
			}
			if got := tt.status.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
		})
	}
}

func TestStatusClassification(t *testing.T) {
	if !StatusContent.IsSuccess() || StatusContent.IsError() {
		t.Error("Content should be success")
	}
	if !StatusNoError.IsSuccess() {
		t.Error("NoError should be success")
	}
	if StatusIgnore.IsSuccess() || StatusIgnore.IsError() {
		t.Error("Ignore should be neither success nor error")
	}
	if !StatusNotFound.IsError() || StatusNotFound.IsSuccess() {
		t.Error("NotFound should be error")
	}
}

func TestParseCommand(t *testing.T) {
	for c, name := range commandNames {
		if got := ParseCommand(name); got != c {
			t.Errorf("ParseCommand(%q) = %v, want %v", name, got, c)
		}
		if c.String() != name {
			t.Errorf("String() = %q, want %q", c.String(), name)
		}
	}
	if got := ParseCommand("reboot"); got != CommandUnknown {
		t.Errorf("ParseCommand(reboot) = %v, want unknown", got)
	}
	if CommandUnknown.IsValid() {
		t.Error("unknown command should not be valid")
	}
	if !CommandHeartbeat.IsControl() || CommandRead.IsControl() {
		t.Error("IsControl mismatch")
	}
}

func TestRequestHeader(t *testing.T) {
	req := &Request{
		MessageID:  7,
		ObjectID:   3,
		InstanceID: 0,
		Count:      2,
		Body:       []byte{0x00, 0x00, 0x01, 0x00},
	}
	data := req.Encode()
	want := []byte{1, 7, 3, 0, 0, 0, 2, 0, 0, 0, 1, 0}
	if !bytes.Equal(data, want) {
		t.Fatalf("Encode() = %v, want %v", data, want)
	}

	got, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}
	if got.MessageID != 7 || got.ObjectID != 3 || got.Count != 2 {
		t.Errorf("decoded header = %+v", got)
	}
	ids, err := got.ResourceIDs()
	if err != nil {
		t.Fatalf("ResourceIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Errorf("ResourceIDs() = %v, want [0 1]", ids)
	}
}

func TestRequestErrors(t *testing.T) {
	t.Run("ShortHeader", func(t *testing.T) {
		_, err := DecodeRequest([]byte{1, 2, 3})
		if !errors.Is(err, ErrShortHeader) {
			t.Errorf("expected ErrShortHeader, got %v", err)
		}
	})

	t.Run("TruncatedIDs", func(t *testing.T) {
		req, err := DecodeRequest([]byte{1, 1, 0, 0, 0, 0, 3, 0, 1, 0})
		if err != nil {
			t.Fatalf("DecodeRequest() error = %v", err)
		}
		if _, err := req.ResourceIDs(); !errors.Is(err, ErrShortPayload) {
			t.Errorf("expected ErrShortPayload, got %v", err)
		}
	})
}

func TestResponseEncoding(t *testing.T) {
	req := &Request{MessageID: 9, ObjectID: 1, InstanceID: 2}
	resp := NewResponse(req)
	resp.Status = StatusContent
	resp.AppendUint16s([]uint16{0, 1, 258})

	data := resp.Encode()
	want := []byte{2, 9, 0x45, 1, 0, 2, 0, 3, 0, 0, 0, 1, 0, 2, 1}
	if !bytes.Equal(data, want) {
		t.Fatalf("Encode() = %v, want %v", data, want)
	}

	decoded, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if decoded.Status != StatusContent || decoded.Count != 3 || decoded.InstanceID != 2 {
		t.Errorf("decoded = %+v", decoded)
	}

	resp.Fail(StatusNotFound)
	if resp.Count != 0 || resp.Body != nil || resp.Status != StatusNotFound {
		t.Errorf("Fail() left %+v", resp)
	}
}

func TestLineFraming(t *testing.T) {
	payload := []byte{1, 2, 3, 0, 0, 0, 0, 0}

	t.Run("RoundTrip", func(t *testing.T) {
		line := FormatLine("read", payload)
		name, data, err := ParseLine(line + "\n")
		if err != nil {
			t.Fatalf("ParseLine() error = %v", err)
		}
		if name != "read" || !bytes.Equal(data, payload) {
			t.Errorf("ParseLine() = %q %v", name, data)
		}
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		name, data, err := ParseLine("/heartbeat:")
		if err != nil {
			t.Fatalf("ParseLine() error = %v", err)
		}
		if name != "heartbeat" || data != nil {
			t.Errorf("ParseLine() = %q %v", name, data)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, line := range []string{"", "read:AA==", "/:AA==", "/read", "/read:!!"} {
			if _, _, err := ParseLine(line); !errors.Is(err, ErrMalformedLine) {
				t.Errorf("ParseLine(%q) error = %v, want ErrMalformedLine", line, err)
			}
		}
	})

	t.Run("Response", func(t *testing.T) {
		line := FormatResponse("write", payload)
		if line[:len(ResponsePrefix)] != ResponsePrefix {
			t.Fatalf("missing prefix: %q", line)
		}
		name, data, err := ParseResponse(line)
		if err != nil {
			t.Fatalf("ParseResponse() error = %v", err)
		}
		if name != "write" || !bytes.Equal(data, payload) {
			t.Errorf("ParseResponse() = %q %v", name, data)
		}
	})
}
