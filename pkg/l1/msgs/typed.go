package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
)

// Message Kinds
const (
	TypeIDKindData  uint32 = 0x00000000
	TypeIDKindEvent uint32 = 0x80000000
)

// Typed wraps a message with type information.
type Typed struct {
	TypeId  uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (p *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (p *Typed) Reset() { *p = Typed{} }

// String implements proto.Message.
func (p *Typed) String() string { return proto.CompactTextString(p) }

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// ErrNotSerializable indicates the message is not serializable.
var ErrNotSerializable = errors.New("not serializable message")

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	proto.Message
	NewMessage() SerializableMessage
	TypeID() uint32
}

// MessageTypes are predefined mapping of type ID to messages.
var MessageTypes = map[uint32]SerializableMessage{
	SensorValueTypeID: (*SensorValue)(nil),
	SensorArrayTypeID: (*SensorArray)(nil),
	TimeSyncTypeID:    (*TimeSync)(nil),
	CalibrationTypeID: (*Calibration)(nil),
}

// TypedFrom creates a Typed from a serializable message.
func TypedFrom(msg interface{}) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &Typed{TypeId: s.TypeID(), Message: data}, nil
}

// Encode wraps msg in a Typed and encodes it.
func Encode(msg SerializableMessage) ([]byte, error) {
	typed, err := TypedFrom(msg)
	if err != nil {
		return nil, err
	}
	return typed.Encode()
}

// Decode decodes the packet into actual message.
func (p *Typed) Decode() (SerializableMessage, error) {
	msgType, ok := MessageTypes[p.TypeId]
	if !ok {
		return nil, &ErrUnknownType{TypeID: p.TypeId}
	}
	msg := msgType.NewMessage()
	if err := proto.Unmarshal(p.Message, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the Typed to bytes.
func (p *Typed) Encode() ([]byte, error) {
	return proto.Marshal(p)
}

// Kind gets message kind from type ID.
func (p *Typed) Kind() uint32 {
	return p.TypeId & TypeIDMaskKind
}

// IsEvent determines if the message is an event.
func (p *Typed) IsEvent() bool {
	return p.Kind() == TypeIDKindEvent
}

// DecodeTyped decodes bytes into Typed.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return &typed, nil
}

// DecodeMessage decodes bytes produced by Encode.
func DecodeMessage(data []byte) (SerializableMessage, error) {
	typed, err := DecodeTyped(data)
	if err != nil {
		return nil, err
	}
	return typed.Decode()
}
