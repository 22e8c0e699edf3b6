package log

import (
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// ErrCorrupt is returned when a capture file holds bytes that do not decode
// as an event, typically the tail of a file cut short by a crash.
var ErrCorrupt = errors.New("corrupt protocol log")

// Events are small and shallow; anything deeper or wider is damage.
const (
	maxNestedLevels = 8
	maxMapPairs     = 64
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

// mustEncMode uses canonical key order and RFC 3339 timestamps with
// nanoseconds so captures diff cleanly and keep request timing.
func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic("log: cbor encoder: " + err.Error())
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyQuiet,
		IndefLength:     cbor.IndefLengthAllowed,
		MaxNestedLevels: maxNestedLevels,
		MaxMapPairs:     maxMapPairs,
	}.DecMode()
	if err != nil {
		panic("log: cbor decoder: " + err.Error())
	}
	return dm
}

// EncodeEvent encodes one event with integer map keys.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes one event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, errors.Join(ErrCorrupt, err)
	}
	return event, nil
}

// NewEncoder returns an encoder that writes a stream of events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a decoder that reads a stream of events from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
