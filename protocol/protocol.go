// Package protocol implements the serial framing spoken between the clock
// firmware and host tools. Frames use the Klipper layout: a length byte, a
// sequence byte, VLQ-encoded messages, a CRC16 and a sync byte.
package protocol

// Version is the protocol revision reported by host tools.
const Version = "0.1.0"

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1

	MessageValueSync = 0x7E
	MessageDest      = 0x10
	MessageSeqMask   = 0x0F
)
