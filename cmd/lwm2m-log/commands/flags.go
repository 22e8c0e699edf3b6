package commands

import (
	"fmt"
	"strings"

	"github.com/lwm2m-go/lwm2m-client/pkg/log"
	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

type named interface {
	~uint8
	fmt.Stringer
}

// parseNamed matches s case-insensitively against the String of each
// candidate.
func parseNamed[T named](what, s string, candidates ...T) (T, error) {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
		names[i] = strings.ToLower(c.String())
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q (one of: %s)", what, s, strings.Join(names, ", "))
}

// ParseLayerFlag parses transport, wire, service or store.
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseNamed("layer", s, log.LayerTransport, log.LayerWire, log.LayerService, log.LayerStore)
}

// ParseDirectionFlag parses in or out.
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseNamed("direction", s, log.DirectionIn, log.DirectionOut)
}

// ParseCategoryFlag parses message, control, state, error or object.
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseNamed("category", s,
		log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError, log.CategoryObject)
}

// ParseCommandFlag parses a transport command name such as "read".
func ParseCommandFlag(s string) (wire.Command, error) {
	c := wire.ParseCommand(s)
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid command %q", s)
	}
	return c, nil
}
