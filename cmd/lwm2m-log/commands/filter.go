package commands

import (
	"fmt"
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
)

// FilterOptions are the raw flag values of the filter command. Empty
// strings leave a criterion unset; times are RFC 3339.
type FilterOptions struct {
	Output     string
	SessionID  string
	ClientName string
	TimeStart  string
	TimeEnd    string
	Layer      string
	Direction  string
	Category   string
	Command    string
}

func (o FilterOptions) filter() (log.Filter, error) {
	f := log.Filter{SessionID: o.SessionID, ClientName: o.ClientName}
	var err error
	if f.TimeStart, err = optional(o.TimeStart, parseTime("time-start")); err != nil {
		return f, err
	}
	if f.TimeEnd, err = optional(o.TimeEnd, parseTime("time-end")); err != nil {
		return f, err
	}
	if f.Layer, err = optional(o.Layer, ParseLayerFlag); err != nil {
		return f, err
	}
	if f.Direction, err = optional(o.Direction, ParseDirectionFlag); err != nil {
		return f, err
	}
	if f.Category, err = optional(o.Category, ParseCategoryFlag); err != nil {
		return f, err
	}
	f.Command, err = optional(o.Command, ParseCommandFlag)
	return f, err
}

// optional parses s, returning nil when s is empty.
func optional[T any](s string, parse func(string) (T, error)) (*T, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parse(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseTime(flag string) func(string) (time.Time, error) {
	return func(s string) (time.Time, error) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return t, fmt.Errorf("invalid %s: %w", flag, err)
		}
		return t, nil
	}
}

// RunFilter copies the events in path that match opts into a new
// capture at opts.Output and returns how many were copied.
func RunFilter(path string, opts FilterOptions) (int, error) {
	f, err := opts.filter()
	if err != nil {
		return 0, err
	}

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, err
	}
	err = each(path, f, func(e log.Event) error {
		out.Log(e)
		return nil
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = out.Err()
	}
	return out.Events(), err
}
