package log

import (
	"errors"
	"io"
)

// MultiLogger fans each event out to several sinks, typically a CBOR
// capture file and the operational slog output.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil and NoopLogger sinks are dropped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		switch l.(type) {
		case nil, NoopLogger, *NoopLogger:
			continue
		}
		m.loggers = append(m.loggers, l)
	}
	return m
}

// Log sends the event to every sink in order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Len returns the number of active sinks.
func (m *MultiLogger) Len() int {
	return len(m.loggers)
}

// Close closes every sink that implements io.Closer.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if c, ok := l.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Combine returns NoopLogger when no usable sink is given, the sink itself
// when there is exactly one, and a MultiLogger otherwise.
func Combine(loggers ...Logger) Logger {
	m := NewMultiLogger(loggers...)
	switch m.Len() {
	case 0:
		return NoopLogger{}
	case 1:
		return m.loggers[0]
	}
	return m
}

var _ Logger = (*MultiLogger)(nil)
