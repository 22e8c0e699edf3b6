package wire

import "github.com/plgd-dev/go-coap/v3/message/codes"

// Status represents a response status code.
// Values follow the CoAP response code taxonomy (class.detail packed into
// one byte) plus two local sentinels that never appear in a CoAP message.
type Status uint8

const (
	// StatusNoError indicates that no error status has been assigned.
	StatusNoError Status = 0x00

	// StatusIgnore suppresses the response entirely.
	StatusIgnore Status = 0x01

	// 2.xx success.
	StatusCreated Status = Status(codes.Created)
	StatusDeleted Status = Status(codes.Deleted)
	StatusChanged Status = Status(codes.Changed)
	StatusContent Status = Status(codes.Content)

	// 4.xx client errors.
	StatusBadRequest       Status = Status(codes.BadRequest)
	StatusUnauthorized     Status = Status(codes.Unauthorized)
	StatusNotFound         Status = Status(codes.NotFound)
	StatusMethodNotAllowed Status = Status(codes.MethodNotAllowed)

	// 5.xx server errors.
	StatusInternalServerError Status = Status(codes.InternalServerError)
	StatusNotImplemented      Status = Status(codes.NotImplemented)
	StatusServiceUnavailable  Status = Status(codes.ServiceUnavailable)
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNoError:
		return "NO_ERROR"
	case StatusIgnore:
		return "IGNORE"
	case StatusCreated:
		return "CREATED"
	case StatusDeleted:
		return "DELETED"
	case StatusChanged:
		return "CHANGED"
	case StatusContent:
		return "CONTENT"
	case StatusBadRequest:
		return "BAD_REQUEST"
	case StatusUnauthorized:
		return "UNAUTHORIZED"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case StatusInternalServerError:
		return "INTERNAL_SERVER_ERROR"
	case StatusNotImplemented:
		return "NOT_IMPLEMENTED"
	case StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// Code returns the status as a CoAP code.
func (s Status) Code() codes.Code {
	return codes.Code(s)
}

// Dotted renders the status in CoAP "class.detail" notation (e.g. "2.05").
func (s Status) Dotted() string {
	class := uint8(s) >> 5
	detail := uint8(s) & 0x1f
	return string([]byte{'0' + class, '.', '0' + detail/10, '0' + detail%10})
}

// IsSuccess returns true if the status is a 2.xx code or NoError.
func (s Status) IsSuccess() bool {
	return s == StatusNoError || (s>>5) == 2
}

// IsError returns true if the status is a 4.xx or 5.xx code.
func (s Status) IsError() bool {
	class := s >> 5
	return class == 4 || class == 5
}
