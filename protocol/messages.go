package protocol

// Message IDs shared by firmware and host. IDs below 64 are commands
// (host to MCU), the rest are responses.
const (
	MsgGetTime   uint16 = 1
	MsgSetTime   uint16 = 2
	MsgGetStatus uint16 = 3

	MsgTime   uint16 = 64
	MsgStatus uint16 = 65
	MsgError  uint16 = 66
)

// Error codes carried by MsgError.
const (
	ErrCodeUnknownCommand = 1
	ErrCodeBadArguments   = 2
	ErrCodeRejected       = 3
	ErrCodeReplyTooLarge  = 4
)

// maxErrorMessage is the encoded size of the largest MsgError: one byte of
// ID, a 5-byte command ID and a one-byte code.
const maxErrorMessage = 7

// Message is one decoded message from a frame payload.
type Message struct {
	ID   uint16
	Args []uint32
}

// AppendMessage appends a message with VLQ-encoded arguments.
func AppendMessage(dst []byte, id uint16, args ...uint32) []byte {
	dst = AppendVLQUint(dst, uint32(id))
	for _, a := range args {
		dst = AppendVLQUint(dst, a)
	}
	return dst
}

// ParseResponse decodes a response payload whose argument count is known
// from its ID. Unknown IDs consume the rest of the payload as arguments.
func ParseResponse(payload []byte) ([]Message, error) {
	var msgs []Message
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			return msgs, err
		}
		n, known := responseArgs[uint16(id)]
		msg := Message{ID: uint16(id)}
		for i := 0; len(payload) > 0 && (!known || i < n); i++ {
			v, err := DecodeVLQUint(&payload)
			if err != nil {
				return msgs, err
			}
			msg.Args = append(msg.Args, v)
		}
		if known && len(msg.Args) != n {
			return msgs, ErrBufferTooSmall
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

var responseArgs = map[uint16]int{
	MsgTime:   2,
	MsgStatus: StatusArgs,
	MsgError:  2,
}

// StatusArgs is the number of arguments of MsgStatus:
// state cause path lost ratio resyncs persists persist_failures.
const StatusArgs = 8
