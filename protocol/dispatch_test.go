package protocol

import (
	"errors"
	"testing"
)

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()

	var got uint32
	d.Register(5, "echo", "v=%u", func(args *[]byte) ([]byte, error) {
		v, err := DecodeVLQUint(args)
		got = v
		return AppendMessage(nil, 70, v), err
	})
	d.Register(70, "echoed", "v=%u", nil)

	args := AppendVLQUint(nil, 4242)
	reply, err := d.Dispatch(5, &args)
	if err != nil || got != 4242 {
		t.Fatalf("Dispatch: got %d err %v", got, err)
	}
	if len(args) != 0 {
		t.Errorf("handler left %d bytes of args", len(args))
	}
	if want := AppendMessage(nil, 70, 4242); string(reply) != string(want) {
		t.Errorf("reply % X, want % X", reply, want)
	}

	cmd, ok := d.Lookup(70)
	if !ok || cmd.Name != "echoed" || cmd.Handler != nil {
		t.Errorf("Lookup(70) = %+v, %v", cmd, ok)
	}

	var cmdErr *CommandError
	if _, err := d.Dispatch(70, &args); !errors.As(err, &cmdErr) || cmdErr.ID != 70 {
		t.Errorf("dispatching a response: %v", err)
	}
	if _, err := d.Dispatch(999, &args); err == nil || err.Error() != "unknown command ID: 999" {
		t.Errorf("unknown command: %v", err)
	}

	if dict := d.Dictionary(); dict != "5 echo v=%u\n70 echoed v=%u\n" {
		t.Errorf("Dictionary = %q", dict)
	}
}

func TestParseResponse(t *testing.T) {
	payload := AppendMessage(nil, MsgTime, 1, 2)
	payload = AppendMessage(payload, MsgError, 9, ErrCodeUnknownCommand)

	msgs, err := ParseResponse(payload)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("ParseResponse = %+v, %v", msgs, err)
	}
	if msgs[0].ID != MsgTime || msgs[0].Args[1] != 2 || msgs[1].ID != MsgError || msgs[1].Args[0] != 9 {
		t.Errorf("messages = %+v", msgs)
	}

	if _, err := ParseResponse(AppendMessage(nil, MsgTime, 1)); err != ErrBufferTooSmall {
		t.Errorf("truncated response: %v", err)
	}
}
