package msgs

import (
	"github.com/golang/protobuf/proto"
)

// SensorValue is a scalar reading.
type SensorValue struct {
	Device    string  `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Source    string  `protobuf:"bytes,2,opt,name=source,proto3" json:"source,omitempty"`
	Slot      int32   `protobuf:"varint,3,opt,name=slot,proto3" json:"slot,omitempty"`
	Timestamp int64   `protobuf:"varint,4,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Value     float64 `protobuf:"fixed64,5,opt,name=value,proto3" json:"value,omitempty"`
}

// NewMessage implements SerializableMessage.
func (m *SensorValue) NewMessage() SerializableMessage { return &SensorValue{} }

// TypeID implements SerializableMessage.
func (m *SensorValue) TypeID() uint32 { return SensorValueTypeID }

// ProtoMessage implements proto.Message.
func (m *SensorValue) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SensorValue) Reset() { *m = SensorValue{} }

// String implements proto.Message.
func (m *SensorValue) String() string { return proto.CompactTextString(m) }

// SensorArray is a reading of several values, e.g. 3 axes.
type SensorArray struct {
	Device    string    `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Source    string    `protobuf:"bytes,2,opt,name=source,proto3" json:"source,omitempty"`
	Slot      int32     `protobuf:"varint,3,opt,name=slot,proto3" json:"slot,omitempty"`
	Timestamp int64     `protobuf:"varint,4,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Values    []float64 `protobuf:"fixed64,5,rep,packed,name=values,proto3" json:"values,omitempty"`
}

// NewMessage implements SerializableMessage.
func (m *SensorArray) NewMessage() SerializableMessage { return &SensorArray{} }

// TypeID implements SerializableMessage.
func (m *SensorArray) TypeID() uint32 { return SensorArrayTypeID }

// ProtoMessage implements proto.Message.
func (m *SensorArray) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SensorArray) Reset() { *m = SensorArray{} }

// String implements proto.Message.
func (m *SensorArray) String() string { return proto.CompactTextString(m) }

// TimeSync carries authoritative epoch seconds.
type TimeSync struct {
	Epoch int64 `protobuf:"varint,1,opt,name=epoch,proto3" json:"epoch,omitempty"`
}

// NewMessage implements SerializableMessage.
func (m *TimeSync) NewMessage() SerializableMessage { return &TimeSync{} }

// TypeID implements SerializableMessage.
func (m *TimeSync) TypeID() uint32 { return TimeSyncTypeID }

// ProtoMessage implements proto.Message.
func (m *TimeSync) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TimeSync) Reset() { *m = TimeSync{} }

// String implements proto.Message.
func (m *TimeSync) String() string { return proto.CompactTextString(m) }

// Calibration is an event reporting a completed calibration.
type Calibration struct {
	Device     string   `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Parts      [][]byte `protobuf:"bytes,2,rep,name=parts,proto3" json:"parts,omitempty"`
	DurationMs uint32   `protobuf:"varint,3,opt,name=duration_ms,json=durationMs,proto3" json:"duration_ms,omitempty"`
}

// NewMessage implements SerializableMessage.
func (m *Calibration) NewMessage() SerializableMessage { return &Calibration{} }

// TypeID implements SerializableMessage.
func (m *Calibration) TypeID() uint32 { return CalibrationTypeID }

// ProtoMessage implements proto.Message.
func (m *Calibration) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Calibration) Reset() { *m = Calibration{} }

// String implements proto.Message.
func (m *Calibration) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupSensor uint32 = 0x00010000
	GroupTime   uint32 = 0x00020000
	GroupCustom uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	SensorValueTypeID uint32 = GroupSensor | 0x0000
	SensorArrayTypeID uint32 = GroupSensor | 0x0001
	CalibrationTypeID uint32 = GroupSensor | TypeIDKindEvent | 0x0002
	TimeSyncTypeID    uint32 = GroupTime | 0x0000
)
