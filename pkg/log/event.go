package log

import (
	"time"

	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

// Event is one captured protocol occurrence. Exactly one payload pointer
// is set, selected by Category (Frame and Message share CategoryMessage
// and are told apart by Layer). Integer CBOR keys are part of the file
// format; never renumber them.
type Event struct {
	Timestamp  time.Time `cbor:"1,keyasint"`
	SessionID  string    `cbor:"2,keyasint"`
	Direction  Direction `cbor:"3,keyasint"`
	Layer      Layer     `cbor:"4,keyasint"`
	Category   Category  `cbor:"5,keyasint"`
	ClientName string    `cbor:"6,keyasint,omitempty"`

	// ServerID is the short server id a remote operation acted for.
	ServerID uint16 `cbor:"7,keyasint,omitempty"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
	Object      *ObjectEvent      `cbor:"15,keyasint,omitempty"`
}

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "UNKNOWN"
}

// Direction is relative to the client: In is server to client.
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
)

var directionNames = []string{"IN", "OUT"}

func (d Direction) String() string { return enumName(directionNames, uint8(d)) }

// Layer names the component that emitted an event.
type Layer uint8

const (
	// LayerTransport sees raw command lines.
	LayerTransport Layer = iota
	// LayerWire sees decoded headers.
	LayerWire
	// LayerService sees lifecycle changes.
	LayerService
	// LayerStore sees resource mutations.
	LayerStore
)

var layerNames = []string{"TRANSPORT", "WIRE", "SERVICE", "STORE"}

func (l Layer) String() string { return enumName(layerNames, uint8(l)) }

// Category selects the payload of an Event.
type Category uint8

const (
	CategoryMessage Category = iota
	CategoryControl
	CategoryState
	CategoryError
	CategoryObject
)

var categoryNames = []string{"MESSAGE", "CONTROL", "STATE", "ERROR", "OBJECT"}

func (c Category) String() string { return enumName(categoryNames, uint8(c)) }

// FrameEvent is a raw transport line. Data may hold only a prefix of
// the line; Size is always the full length.
type FrameEvent struct {
	Size      int    `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}

// MessageEvent is a decoded request or response header.
type MessageEvent struct {
	Type       MessageType  `cbor:"1,keyasint"`
	MessageID  uint8        `cbor:"2,keyasint"`
	Command    wire.Command `cbor:"3,keyasint"`
	ObjectID   uint16       `cbor:"4,keyasint"`
	InstanceID uint16       `cbor:"5,keyasint"`
	Count      uint16       `cbor:"6,keyasint,omitempty"`

	// Status and ProcessingTime are only set on responses.
	Status         *wire.Status   `cbor:"7,keyasint,omitempty"`
	ProcessingTime *time.Duration `cbor:"8,keyasint,omitempty"`
}

type MessageType uint8

const (
	MessageTypeRequest MessageType = iota
	MessageTypeResponse
)

var messageTypeNames = []string{"REQUEST", "RESPONSE"}

func (m MessageType) String() string { return enumName(messageTypeNames, uint8(m)) }

// StateChangeEvent records a lifecycle transition. OldState is empty for
// the first transition of an entity.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

type StateEntity uint8

const (
	// StateEntityClient tracks the registration state machine.
	StateEntityClient StateEntity = iota
	// StateEntityStore tracks store readiness.
	StateEntityStore
	// StateEntityCredentials tracks credential save and clear.
	StateEntityCredentials
)

var stateEntityNames = []string{"CLIENT", "STORE", "CREDENTIALS"}

func (s StateEntity) String() string { return enumName(stateEntityNames, uint8(s)) }

type ControlMsgEvent struct {
	Type ControlMsgType `cbor:"1,keyasint"`
}

type ControlMsgType uint8

const ControlMsgHeartbeat ControlMsgType = 0

func (c ControlMsgType) String() string { return enumName([]string{"HEARTBEAT"}, uint8(c)) }

// ObjectEvent is a store mutation. URI is "/{obj}" for object-wide
// events; Type is the store event name such as "updated".
type ObjectEvent struct {
	URI    string `cbor:"1,keyasint"`
	Type   string `cbor:"2,keyasint"`
	Remote bool   `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData describes a failure. Context names the operation that
// was in progress.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
	Code    *int   `cbor:"3,keyasint,omitempty"`
	Context string `cbor:"4,keyasint,omitempty"`
}
