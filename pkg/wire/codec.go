package wire

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ResponsePrefix starts every outbound transport line.
const ResponsePrefix = "/resp:"

// ErrMalformedLine is returned for transport lines that are not "/cmd:base64".
var ErrMalformedLine = errors.New("malformed transport line")

// ParseLine splits an inbound transport line of the form "/{command}:{base64}"
// into its command name and decoded payload. An empty base64 part yields a
// nil payload.
func ParseLine(line string) (string, []byte, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "/") {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	name, encoded, ok := strings.Cut(line[1:], ":")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	if encoded == "" {
		return name, nil, nil
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return name, payload, nil
}

// FormatLine builds an inbound-style line for command and payload.
func FormatLine(command string, payload []byte) string {
	return "/" + command + ":" + base64.StdEncoding.EncodeToString(payload)
}

// FormatResponse frames an encoded response for the transport:
// "/resp:{command}:{base64}".
func FormatResponse(command string, response []byte) string {
	return ResponsePrefix + command + ":" + base64.StdEncoding.EncodeToString(response)
}

// ParseResponse is the inverse of FormatResponse.
func ParseResponse(line string) (string, []byte, error) {
	line = strings.TrimRight(line, "\r\n")
	rest, ok := strings.CutPrefix(line, ResponsePrefix)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	name, encoded, ok := strings.Cut(rest, ":")
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return name, data, nil
}
