package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

// Filter selects events. Zero-valued fields are wildcards; all set
// fields must match. TimeStart is inclusive, TimeEnd exclusive.
type Filter struct {
	SessionID  string
	ClientName string
	Direction  *Direction
	Layer      *Layer
	Category   *Category
	TimeStart  *time.Time
	TimeEnd    *time.Time

	// Command only matches message events.
	Command *wire.Command
}

func (f *Filter) matches(e Event) bool {
	switch {
	case f.SessionID != "" && e.SessionID != f.SessionID,
		f.ClientName != "" && e.ClientName != f.ClientName,
		f.Direction != nil && e.Direction != *f.Direction,
		f.Layer != nil && e.Layer != *f.Layer,
		f.Category != nil && e.Category != *f.Category,
		f.TimeStart != nil && e.Timestamp.Before(*f.TimeStart),
		f.TimeEnd != nil && !e.Timestamp.Before(*f.TimeEnd):
		return false
	}
	if f.Command == nil {
		return true
	}
	return e.Message != nil && e.Message.Command == *f.Command
}

// Reader streams events out of a capture file one at a time, so
// arbitrarily large captures can be scanned in constant memory.
type Reader struct {
	file    *os.File
	dec     *cbor.Decoder
	filter  Filter
	decoded int
}

// NewReader opens path for unfiltered reading.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path; Next skips events rejected by filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, dec: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event. It returns io.EOF once the file
// is exhausted and an error wrapping ErrCorrupt for undecodable bytes.
func (r *Reader) Next() (Event, error) {
	for {
		var e Event
		err := r.dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		if err != nil {
			return Event{}, fmt.Errorf("%w after %d events: %v", ErrCorrupt, r.decoded, err)
		}
		r.decoded++
		if r.filter.matches(e) {
			return e, nil
		}
	}
}

// Close releases the file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}
