package protocol

import (
	"errors"
	"io"
)

// Session is the firmware end of a link. It reassembles frames from the
// bytes it is fed, dispatches the messages of every in-sequence frame and
// answers each frame with one reply frame carrying the next expected
// sequence number. A reply with an empty payload is a plain ack, or a nak
// when the frame was out of sequence.
type Session struct {
	dispatcher *Dispatcher
	out        io.Writer

	pending []byte
	scratch []byte
	synced  bool
	nextSeq uint8
	dropped uint32
}

// NewSession returns a session writing replies to out.
func NewSession(d *Dispatcher, out io.Writer) *Session {
	return &Session{
		dispatcher: d,
		out:        out,
		pending:    make([]byte, 0, 2*MessageLengthMax),
		scratch:    make([]byte, 0, MessageLengthMax),
		synced:     true,
		nextSeq:    MessageDest,
	}
}

// Receive consumes bytes read from the link. It returns the first error
// hit while writing replies; malformed input is dropped, never returned.
func (s *Session) Receive(data []byte) error {
	s.pending = append(s.pending, data...)
	buf := s.pending

	var werr error
	for len(buf) > 0 {
		if !s.synced {
			n := SkipToSync(buf)
			found := buf[n-1] == MessageValueSync
			buf = buf[n:]
			if !found {
				break
			}
			s.synced = true
			if err := s.send(nil); err != nil && werr == nil {
				werr = err
			}
			continue
		}

		if buf[0] == MessageValueSync {
			buf = buf[1:]
			continue
		}

		f, n, err := DecodeFrame(buf)
		if err != nil {
			s.dropped++
			s.synced = false
			continue
		}
		if n == 0 {
			break
		}
		buf = buf[n:]

		// A host that restarted begins again at the first sequence.
		if f.Seq == MessageDest && s.nextSeq != MessageDest {
			s.nextSeq = MessageDest
		}

		var reply []byte
		if f.Seq == s.nextSeq {
			s.nextSeq = NextSequence(f.Seq)
			reply = s.process(f.Payload)
		}
		if err := s.send(reply); err != nil && werr == nil {
			werr = err
		}
	}

	s.pending = append(s.pending[:0], buf...)
	return werr
}

// Dropped returns the number of malformed frames discarded so far.
func (s *Session) Dropped() uint32 {
	return s.dropped
}

// process runs every message in payload and collects their replies.
// Processing stops at the first failing message since its arguments cannot
// be skipped reliably. Room for one error message is always kept so the
// reply fits a single frame; a message whose reply would not fit is answered
// with ErrCodeReplyTooLarge and ends processing.
func (s *Session) process(payload []byte) []byte {
	var reply []byte
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			return AppendMessage(reply, MsgError, 0, ErrCodeBadArguments)
		}
		out, err := s.dispatcher.Dispatch(uint16(id), &payload)
		if err != nil {
			return AppendMessage(reply, MsgError, id, errorCode(err))
		}
		if len(reply)+len(out) > MessagePayloadMax-maxErrorMessage {
			return AppendMessage(reply, MsgError, id, ErrCodeReplyTooLarge)
		}
		reply = append(reply, out...)
	}
	return reply
}

func errorCode(err error) uint32 {
	var cmdErr *CommandError
	switch {
	case errors.As(err, &cmdErr):
		return ErrCodeUnknownCommand
	case errors.Is(err, ErrBufferTooSmall), errors.Is(err, ErrInvalidVLQ):
		return ErrCodeBadArguments
	default:
		return ErrCodeRejected
	}
}

func (s *Session) send(payload []byte) error {
	frame, err := EncodeFrame(s.scratch[:0], s.nextSeq, payload)
	if err != nil {
		return err
	}
	s.scratch = frame[:0]
	_, err = s.out.Write(frame)
	return err
}
