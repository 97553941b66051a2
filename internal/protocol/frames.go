// internal/protocol/frames.go
package protocol

import "encoding/binary"

// Opcodes received on the owner connection (byte 0 of each binary frame).
const (
	OwnerRemoveClient = 0x00 // + clientID (2 bytes)
	OwnerPipe         = 0x01 // + targetID (2 bytes) + payload
	OwnerResources    = 0x02 // + UTF-8 JSON text
	OwnerAnalytics    = 0x03 // + NUL-separated analytics entry and total time
)

// Opcodes sent by the hub to the owner connection.
const (
	EventClientJoined = 0x00 // + clientID (2 bytes) + isAdmin (1 byte) + identity token
	EventClientFrame  = 0x01 // + clientID (2 bytes) + relayed payload
	EventClientLeft   = 0x02 // + clientID (2 bytes)
	EventControl      = 0xFF // + status (1 byte) + UTF-8 text
)

// Control frame status codes.
const (
	StatusError   = 0x00
	StatusSuccess = 0x01
)

// BroadcastID is the reserved target meaning "every attached client".
const BroadcastID = 0

// MaxClientFrame is the largest client payload that will be relayed to the
// owner. Larger (or empty) frames are dropped without an error.
const MaxClientFrame = 1024

// All multi-byte integers on the wire are big-endian.

// U16 reads a 2-byte id starting at b[off]. ok is false when b is too short.
func U16(b []byte, off int) (v uint16, ok bool) {
	if off < 0 || len(b) < off+2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(b[off : off+2]), true
}

// AppendU16 appends the 2-byte encoding of v to b.
func AppendU16(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

// ClientJoined builds the frame announcing a newly attached client to the owner.
func ClientJoined(clientID uint16, isAdmin bool, token string) []byte {
	b := make([]byte, 0, 4+len(token))
	b = append(b, EventClientJoined)
	b = AppendU16(b, clientID)
	if isAdmin {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	return append(b, token...)
}

// ClientLeft builds the frame announcing a detached client to the owner.
func ClientLeft(clientID uint16) []byte {
	b := make([]byte, 0, 3)
	b = append(b, EventClientLeft)
	return AppendU16(b, clientID)
}

// ClientRelay envelopes a raw client payload with the relay opcode and the
// sender's id before it is forwarded to the owner.
func ClientRelay(clientID uint16, payload []byte) []byte {
	b := make([]byte, 0, 3+len(payload))
	b = append(b, EventClientFrame)
	b = AppendU16(b, clientID)
	return append(b, payload...)
}

// ControlError builds an error control frame carrying a descriptive message.
func ControlError(msg string) []byte {
	b := make([]byte, 0, 2+len(msg))
	b = append(b, EventControl, StatusError)
	return append(b, msg...)
}

// ControlSuccess builds a success acknowledgment control frame.
func ControlSuccess(text string) []byte {
	b := make([]byte, 0, 2+len(text))
	b = append(b, EventControl, StatusSuccess)
	return append(b, text...)
}
