// Package commands implements the lwm2m-log subcommands. Each Run
// function streams the capture once; nothing is loaded into memory.
package commands

import (
	"fmt"
	"io"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// each calls fn for every event in path that passes f, in file order.
func each(path string, f log.Filter, fn func(log.Event) error) error {
	r, err := log.NewFilteredReader(path, f)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	for {
		e, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// kind labels the payload carried by e.
func kind(e log.Event) string {
	switch {
	case e.Frame != nil:
		return "Frame"
	case e.Message != nil:
		return e.Message.Type.String()
	case e.StateChange != nil:
		return "State"
	case e.ControlMsg != nil:
		return e.ControlMsg.Type.String()
	case e.Object != nil:
		return "Object"
	case e.Error != nil:
		return "Error"
	}
	return "Unknown"
}

func shortenSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
