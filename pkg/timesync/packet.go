package timesync

import (
	"encoding/binary"
	"fmt"
)

// PacketSize is the size of an NTP packet without extensions.
const PacketSize = 48

// NTPEpochOffset is the number of seconds between 1900-01-01 and 1970-01-01.
const NTPEpochOffset = 2208988800

const transmitOffset = 40

var requestTemplate = [PacketSize]byte{
	0:  0xE3, // LI unsynchronized, version 4, mode client
	1:  0,    // stratum
	2:  6,    // poll interval
	3:  0xEC, // precision
	12: 49,
	13: 0x4E,
	14: 49,
	15: 52,
}

// EncodeRequest returns a client request packet.
func EncodeRequest() []byte {
	pkt := make([]byte, PacketSize)
	copy(pkt, requestTemplate[:])
	return pkt
}

// ResponseError indicates a packet which can't be used as a time source.
type ResponseError struct {
	Len    int
	Reason string
}

// Error implements error.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("invalid ntp response (%d bytes): %s", e.Len, e.Reason)
}

// DecodeResponse extracts the transmit timestamp of a server response and
// converts it to Unix seconds.
func DecodeResponse(pkt []byte) (int64, error) {
	if len(pkt) < PacketSize {
		return 0, &ResponseError{Len: len(pkt), Reason: "short packet"}
	}
	secs := binary.BigEndian.Uint32(pkt[transmitOffset:])
	if secs == 0 {
		return 0, &ResponseError{Len: len(pkt), Reason: "zero transmit time"}
	}
	unix := int64(secs) - NTPEpochOffset
	if unix <= 0 {
		return 0, &ResponseError{Len: len(pkt), Reason: "transmit time before unix epoch"}
	}
	return unix, nil
}

// EncodeResponse builds a minimal server response carrying unix as the
// transmit time. Used by the bench shell and tests.
func EncodeResponse(unix int64) []byte {
	pkt := make([]byte, PacketSize)
	pkt[0] = 0x24 // version 4, mode server
	pkt[1] = 1
	binary.BigEndian.PutUint32(pkt[transmitOffset:], uint32(unix+NTPEpochOffset))
	return pkt
}
