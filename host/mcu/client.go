// Package mcu is the host side of the timekeeper link: it frames commands,
// matches replies by sequence number and decodes the clock's responses.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"timekeeper/clock"
	"timekeeper/protocol"
)

var (
	ErrClosed          = errors.New("mcu: link closed")
	ErrUnexpectedReply = errors.New("mcu: unexpected reply")
	ErrRetries         = errors.New("mcu: no reply after retries")
)

// DefaultTimeout bounds a single request when the caller's context has no
// deadline of its own.
const DefaultTimeout = time.Second

const maxRetransmits = 3

// RemoteError is an error message returned by the firmware.
type RemoteError struct {
	ID   uint16
	Code uint32
}

func (e *RemoteError) Error() string {
	var what string
	switch e.Code {
	case protocol.ErrCodeUnknownCommand:
		what = "unknown command"
	case protocol.ErrCodeBadArguments:
		what = "bad arguments"
	case protocol.ErrCodeRejected:
		what = "rejected"
	case protocol.ErrCodeReplyTooLarge:
		what = "reply too large"
	default:
		what = fmt.Sprintf("code %d", e.Code)
	}
	return fmt.Sprintf("mcu: command %d: %s", e.ID, what)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for link diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// Client talks to one MCU. Calls are serialized.
type Client struct {
	port    io.ReadWriter
	log     *zap.Logger
	timeout time.Duration

	mu  sync.Mutex
	seq uint8
	buf []byte

	frames chan protocol.Frame
	done   chan struct{}
	closed atomic.Bool
	errMu  sync.Mutex
	rerr   error
}

// NewClient starts reading frames from port. The client owns port from
// here on and closes it in Close when it implements io.Closer.
func NewClient(port io.ReadWriter, opts ...Option) *Client {
	c := &Client{
		port:    port,
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
		seq:     protocol.MessageDest,
		frames:  make(chan protocol.Frame, 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Close closes the underlying port.
func (c *Client) Close() error {
	c.closed.Store(true)
	if closer, ok := c.port.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)

	var pending []byte
	chunk := make([]byte, 256)
	for {
		n, err := c.port.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
			pending = c.extract(pending)
		}
		// tarm/serial reports an expired read timeout as io.EOF.
		if errors.Is(err, io.EOF) && !c.closed.Load() {
			continue
		}
		if err != nil {
			c.errMu.Lock()
			c.rerr = err
			c.errMu.Unlock()
			return
		}
	}
}

// extract delivers every complete frame in data and returns the remainder.
func (c *Client) extract(data []byte) []byte {
	for len(data) > 0 {
		if data[0] == protocol.MessageValueSync {
			data = data[1:]
			continue
		}
		f, n, err := protocol.DecodeFrame(data)
		if err != nil {
			c.log.Debug("dropping malformed input", zap.Error(err))
			data = data[protocol.SkipToSync(data):]
			continue
		}
		if n == 0 {
			break
		}
		f.Payload = append([]byte(nil), f.Payload...)
		data = data[n:]
		select {
		case c.frames <- f:
		default:
			c.log.Warn("reply queue full, dropping frame", zap.Uint8("seq", f.Seq))
		}
	}
	return append([]byte(nil), data...)
}

func (c *Client) readErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.rerr == nil || errors.Is(c.rerr, io.EOF) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrClosed, c.rerr)
}

// Call sends payload in one frame and returns the messages of the reply.
// A nak moves the client onto the sequence the MCU expects and the frame is
// sent again.
func (c *Client) Call(ctx context.Context, payload []byte) ([]protocol.Message, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.drain()
	for attempt := 0; attempt <= maxRetransmits; attempt++ {
		frame, err := protocol.EncodeFrame(c.buf[:0], c.seq, payload)
		if err != nil {
			return nil, err
		}
		c.buf = frame[:0]
		if _, err := c.port.Write(frame); err != nil {
			return nil, fmt.Errorf("write frame: %w", err)
		}

		want := protocol.NextSequence(c.seq)
		f, err := c.await(ctx)
		if err != nil {
			return nil, err
		}
		if f.Seq == want {
			c.seq = want
			return protocol.ParseResponse(f.Payload)
		}
		c.log.Debug("resynchronizing sequence",
			zap.Uint8("sent", c.seq), zap.Uint8("expected", f.Seq))
		c.seq = f.Seq
	}
	return nil, ErrRetries
}

func (c *Client) await(ctx context.Context) (protocol.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.done:
		// Frames decoded before the read error are still valid.
		select {
		case f := <-c.frames:
			return f, nil
		default:
		}
		return protocol.Frame{}, c.readErr()
	case <-ctx.Done():
		return protocol.Frame{}, ctx.Err()
	}
}

// drain discards replies left over from earlier exchanges.
func (c *Client) drain() {
	for {
		select {
		case f := <-c.frames:
			c.log.Debug("discarding stale frame", zap.Uint8("seq", f.Seq))
		default:
			return
		}
	}
}

// request sends one command and returns its single reply, translating an
// error reply into a *RemoteError.
func (c *Client) request(ctx context.Context, id uint16, want uint16, args ...uint32) (protocol.Message, error) {
	msgs, err := c.Call(ctx, protocol.AppendMessage(nil, id, args...))
	if err != nil {
		return protocol.Message{}, err
	}
	if len(msgs) != 1 {
		return protocol.Message{}, fmt.Errorf("%w: %d messages", ErrUnexpectedReply, len(msgs))
	}
	msg := msgs[0]
	switch msg.ID {
	case want:
		return msg, nil
	case protocol.MsgError:
		return protocol.Message{}, &RemoteError{ID: uint16(msg.Args[0]), Code: msg.Args[1]}
	default:
		return protocol.Message{}, fmt.Errorf("%w: id %d", ErrUnexpectedReply, msg.ID)
	}
}

// GetTime returns the MCU clock in microseconds.
func (c *Client) GetTime(ctx context.Context) (uint64, error) {
	msg, err := c.request(ctx, protocol.MsgGetTime, protocol.MsgTime)
	if err != nil {
		return 0, err
	}
	return joinTime(msg.Args), nil
}

// SetTime sets the MCU clock to us microseconds and returns the time the
// MCU reported right after.
func (c *Client) SetTime(ctx context.Context, us uint64) (uint64, error) {
	msg, err := c.request(ctx, protocol.MsgSetTime, protocol.MsgTime, uint32(us>>32), uint32(us))
	if err != nil {
		return 0, err
	}
	return joinTime(msg.Args), nil
}

func joinTime(args []uint32) uint64 {
	return uint64(args[0])<<32 | uint64(args[1])
}

// Status is the decoded get_status reply.
type Status struct {
	State           clock.State
	Cause           clock.ResetCause
	Path            clock.State
	Lost            uint8
	Ratio           clock.Ratio
	Resyncs         uint32
	Persists        uint32
	PersistFailures uint32
}

// LostReason names Lost.
func (s Status) LostReason() string {
	switch s.Lost {
	case 0:
		return "none"
	case clock.LostUnrecoverableReset:
		return "unrecoverable-reset"
	case clock.LostBadChecksum:
		return "bad-checksum"
	case clock.LostNoCalibration:
		return "no-calibration"
	default:
		return fmt.Sprintf("reason-%d", s.Lost)
	}
}

// Status returns the MCU boot report and counters.
func (c *Client) Status(ctx context.Context) (Status, error) {
	msg, err := c.request(ctx, protocol.MsgGetStatus, protocol.MsgStatus)
	if err != nil {
		return Status{}, err
	}
	a := msg.Args
	return Status{
		State:           clock.State(a[0]),
		Cause:           clock.ResetCause(a[1]),
		Path:            clock.State(a[2]),
		Lost:            uint8(a[3]),
		Ratio:           clock.Ratio(a[4]),
		Resyncs:         a[5],
		Persists:        a[6],
		PersistFailures: a[7],
	}, nil
}
