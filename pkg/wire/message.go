package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Direction flags carried in byte 0 of every header. Informational only.
const (
	DirectionRequest  uint8 = 1
	DirectionResponse uint8 = 2
)

// Header sizes in bytes.
const (
	RequestHeaderSize  = 8
	ResponseHeaderSize = 9
)

// Header decoding errors.
var (
	ErrShortHeader  = errors.New("payload shorter than request header")
	ErrShortPayload = errors.New("payload truncated")
)

// Request is the decoded fixed header of a command payload plus its body.
//
// Binary layout (little-endian):
//
//	0     direction (1=request)
//	1     message id
//	2..3  object id
//	4..5  instance id
//	6..7  resource count
//	8..   body (resource ids, TLV entries or command-specific bytes)
type Request struct {
	Direction  uint8
	MessageID  uint8
	ObjectID   uint16
	InstanceID uint16
	Count      uint16
	Body       []byte
}

// DecodeRequest decodes the fixed request header.
func DecodeRequest(payload []byte) (*Request, error) {
	if len(payload) < RequestHeaderSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(payload))
	}
	return &Request{
		Direction:  payload[0],
		MessageID:  payload[1],
		ObjectID:   binary.LittleEndian.Uint16(payload[2:4]),
		InstanceID: binary.LittleEndian.Uint16(payload[4:6]),
		Count:      binary.LittleEndian.Uint16(payload[6:8]),
		Body:       payload[RequestHeaderSize:],
	}, nil
}

// Encode serializes the request header followed by its body.
func (r *Request) Encode() []byte {
	buf := make([]byte, RequestHeaderSize, RequestHeaderSize+len(r.Body))
	buf[0] = DirectionRequest
	buf[1] = r.MessageID
	binary.LittleEndian.PutUint16(buf[2:4], r.ObjectID)
	binary.LittleEndian.PutUint16(buf[4:6], r.InstanceID)
	binary.LittleEndian.PutUint16(buf[6:8], r.Count)
	return append(buf, r.Body...)
}

// ResourceIDs reads Count little-endian resource ids from the body.
func (r *Request) ResourceIDs() ([]uint16, error) {
	need := int(r.Count) * 2
	if len(r.Body) < need {
		return nil, fmt.Errorf("%w: need %d bytes of resource ids, have %d", ErrShortPayload, need, len(r.Body))
	}
	ids := make([]uint16, r.Count)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint16(r.Body[i*2:])
	}
	return ids, nil
}

// Response is the reply to a Request.
//
// Binary layout (little-endian):
//
//	0     direction (2=response)
//	1     message id (echoed)
//	2     status
//	3..4  object id
//	5..6  instance id
//	7..8  resource count
//	9..   body
type Response struct {
	MessageID  uint8
	Status     Status
	ObjectID   uint16
	InstanceID uint16
	Count      uint16
	Body       []byte
}

// NewResponse creates a response echoing the request header.
func NewResponse(req *Request) *Response {
	if req == nil {
		return &Response{}
	}
	return &Response{
		MessageID:  req.MessageID,
		ObjectID:   req.ObjectID,
		InstanceID: req.InstanceID,
	}
}

// IsSuccess returns true if the response carries a success status.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Fail sets an error status and clears the body and resource count.
func (r *Response) Fail(status Status) *Response {
	r.Status = status
	r.Count = 0
	r.Body = nil
	return r
}

// AppendUint16s appends little-endian values to the body and sets Count.
func (r *Response) AppendUint16s(values []uint16) {
	for _, v := range values {
		r.Body = binary.LittleEndian.AppendUint16(r.Body, v)
	}
	r.Count = uint16(len(values))
}

// Encode serializes the response.
func (r *Response) Encode() []byte {
	buf := make([]byte, ResponseHeaderSize, ResponseHeaderSize+len(r.Body))
	buf[0] = DirectionResponse
	buf[1] = r.MessageID
	buf[2] = byte(r.Status)
	binary.LittleEndian.PutUint16(buf[3:5], r.ObjectID)
	binary.LittleEndian.PutUint16(buf[5:7], r.InstanceID)
	binary.LittleEndian.PutUint16(buf[7:9], r.Count)
	return append(buf, r.Body...)
}

// DecodeResponse decodes an encoded response.
func DecodeResponse(data []byte) (*Response, error) {
	if len(data) < ResponseHeaderSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(data))
	}
	return &Response{
		MessageID:  data[1],
		Status:     Status(data[2]),
		ObjectID:   binary.LittleEndian.Uint16(data[3:5]),
		InstanceID: binary.LittleEndian.Uint16(data[5:7]),
		Count:      binary.LittleEndian.Uint16(data[7:9]),
		Body:       data[ResponseHeaderSize:],
	}, nil
}
