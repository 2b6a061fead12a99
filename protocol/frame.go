package protocol

import "errors"

var (
	ErrFrameTooLarge = errors.New("frame payload too large")
	ErrFrameLength   = errors.New("invalid frame length")
	ErrFrameSequence = errors.New("invalid frame sequence byte")
	ErrFrameSync     = errors.New("missing frame sync byte")
	ErrFrameCRC      = errors.New("frame CRC mismatch")
)

// Frame is one decoded message block.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// NextSequence returns the sequence byte that follows seq.
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// EncodeFrame appends a frame carrying payload to dst.
func EncodeFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > MessagePayloadMax {
		return dst, ErrFrameTooLarge
	}
	start := len(dst)
	dst = append(dst, byte(len(payload)+MessageLengthMin), (seq&MessageSeqMask)|MessageDest)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), MessageValueSync), nil
}

// DecodeFrame decodes the frame at the start of data and returns how many
// bytes it used. n == 0 with a nil error means the frame is incomplete.
// On error the caller should drop input up to the next sync byte.
// The returned payload aliases data.
func DecodeFrame(data []byte) (f Frame, n int, err error) {
	if len(data) < MessageLengthMin {
		return Frame{}, 0, nil
	}

	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return Frame{}, 0, ErrFrameLength
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return Frame{}, 0, ErrFrameSequence
	}
	if len(data) < msgLen {
		return Frame{}, 0, nil
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return Frame{}, 0, ErrFrameSync
	}

	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return Frame{}, 0, ErrFrameCRC
	}

	return Frame{
		Seq:     seq,
		Payload: data[MessageHeaderSize : msgLen-MessageTrailerSize],
	}, msgLen, nil
}

// SkipToSync returns the number of bytes to drop so that data starts just
// after the next sync byte, or len(data) if there is none.
func SkipToSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i + 1
		}
	}
	return len(data)
}
