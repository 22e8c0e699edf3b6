package model

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestTLVRoundTrip(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		kind  Kind
		value any
		want  any
	}{
		{"string", KindString, "hello", "hello"},
		{"empty string", KindString, "", ""},
		{"integer", KindInteger, 42, int64(42)},
		{"negative integer", KindInteger, -7, int64(-7)},
		{"float", KindFloat, 1.5, 1.5},
		{"opaque", KindOpaque, []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"boolean true", KindBoolean, true, true},
		{"boolean false", KindBoolean, false, false},
		{"object link", KindObjectLink, ObjectLink{ObjectID: 3, ObjectInstanceID: 1}, ObjectLink{ObjectID: 3, ObjectInstanceID: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Build(9, tt.kind, ACLDefault, tt.value, false)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			buf, err := r.Serialize(ctx, nil)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			got, err := ParseAll(buf)
			if err != nil {
				t.Fatalf("ParseAll: %v", err)
			}
			res, ok := got[9]
			if !ok {
				t.Fatalf("resource 9 missing from %v", got)
			}
			if res.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", res.Kind, tt.kind)
			}
			v, err := res.ToValue(ctx, true)
			if err != nil {
				t.Fatalf("ToValue: %v", err)
			}
			if !reflect.DeepEqual(v, tt.want) {
				t.Errorf("value = %#v, want %#v", v, tt.want)
			}
		})
	}
}

func TestTLVHeaderLayout(t *testing.T) {
	r, _ := Build(0x0102, KindString, ACLRead, "ab", false)
	buf, err := r.Serialize(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x02, 0x01, byte(KindString), 0x02, 0x00, 'a', 'b'}
	if !bytes.Equal(buf, want) {
		t.Errorf("Serialize = % x, want % x", buf, want)
	}
}

func TestTLVIntegerIsText(t *testing.T) {
	r, _ := Build(1, KindInteger, ACLRead, 100, false)
	buf, _ := r.Serialize(context.Background(), nil)
	if got := string(buf[TLVHeaderSize:]); got != "100" {
		t.Errorf("integer body = %q, want %q", got, "100")
	}
}

func TestParseOpaqueExample(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x05, 0x01, 0x00, 0x64}
	got, err := ParseAll(buf)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	r := got[0]
	if r == nil {
		t.Fatal("resource 0 missing")
	}
	if r.Kind != KindOpaque {
		t.Fatalf("kind = %s, want OPAQUE", r.Kind)
	}
	if r.ACL != ACLDefault {
		t.Errorf("acl = %s, want %s", r.ACL, ACLDefault)
	}
	n, err := r.ToInteger(context.Background())
	if err != nil {
		t.Fatalf("ToInteger: %v", err)
	}
	if n != 100 {
		t.Errorf("ToInteger = %d, want 100", n)
	}
}

func TestTLVMultipleResource(t *testing.T) {
	ctx := context.Background()
	r, err := Build(5, KindMultipleResource, ACLDefault, []any{"a", "b"}, false)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := r.Serialize(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	// header + count
	if n := int(buf[TLVHeaderSize]) | int(buf[TLVHeaderSize+1])<<8; n != 2 {
		t.Errorf("child count = %d, want 2", n)
	}

	got, err := ParseAll(buf)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := got[5].ToValue(ctx, true)
	inst, ok := v.(Instances)
	if !ok || len(inst) != 2 {
		t.Fatalf("value = %#v, want 2 instances", v)
	}
	for key, want := range map[uint16]string{0: "a", 1: "b"} {
		s, err := inst[key].ToString(ctx)
		if err != nil || s != want {
			t.Errorf("instance %d = %q (%v), want %q", key, s, err, want)
		}
	}
}

func TestTLVMultipleSkipsUnreadableChildren(t *testing.T) {
	hidden, _ := Build(0, KindString, ACLWrite, "secret", false)
	shown, _ := Build(1, KindString, ACLRead, "open", false)
	r, _ := Build(2, KindMultipleResource, ACLRead, Instances{0: hidden, 1: shown}, false)

	buf, err := r.Serialize(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseAll(buf)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := got[2].ToValue(context.Background(), true)
	inst := v.(Instances)
	if len(inst) != 1 || inst[1] == nil {
		t.Errorf("instances = %v, want only sub-index 1", inst)
	}
}

func TestSerializeSkipsUnreadableAndFunction(t *testing.T) {
	ctx := context.Background()
	unreadable, _ := Build(1, KindString, ACLWrite, "x", false)
	fn, _ := Build(2, KindFunction, ACLRead, nil, false)

	for _, r := range []*Resource{unreadable, fn} {
		buf, err := r.Serialize(ctx, []byte{0xAA})
		if err != nil {
			t.Errorf("%s: Serialize error: %v", r, err)
		}
		if !bytes.Equal(buf, []byte{0xAA}) {
			t.Errorf("%s: Serialize appended % x", r, buf[1:])
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"short header", []byte{0, 0, 4}},
		{"short value", []byte{0, 0, 4, 5, 0, 'a'}},
		{"short object link", []byte{0, 0, byte(KindObjectLink), 2, 0, 1, 0}},
		{"unknown kind", []byte{0, 0, 0xEE, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAll(tt.buf); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := ParseAll([]byte{0, 0, 4, 5, 0, 'a'})
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("truncated value error = %v, want bad request", err)
	}
}

func TestParseReturnsRest(t *testing.T) {
	buf := []byte{1, 0, byte(KindBoolean), 1, 0, 1, 0xFF}
	result := map[uint16]*Resource{}
	rest, err := Parse(result, buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rest, []byte{0xFF}) {
		t.Errorf("rest = % x, want ff", rest)
	}
	if b, _ := result[1].ToBoolean(context.Background()); !b {
		t.Error("expected true")
	}
}
