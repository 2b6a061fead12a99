package clock

import "timekeeper/protocol"

// RegisterCommands exposes c on d: get_time, set_time and get_status.
func RegisterCommands(d *protocol.Dispatcher, c *Clock) {
	d.Register(protocol.MsgGetTime, "get_time", "", func(args *[]byte) ([]byte, error) {
		return timeReply(c.Now()), nil
	})

	d.Register(protocol.MsgSetTime, "set_time", "high=%u low=%u", func(args *[]byte) ([]byte, error) {
		t, err := protocol.DecodeUint64(args)
		if err != nil {
			return nil, err
		}
		if err := c.SetTime(t); err != nil {
			return nil, err
		}
		return timeReply(c.Now()), nil
	})

	d.Register(protocol.MsgGetStatus, "get_status", "", func(args *[]byte) ([]byte, error) {
		boot := c.Boot()
		stats := c.Stats()
		return protocol.AppendMessage(nil, protocol.MsgStatus,
			uint32(c.State()),
			uint32(boot.Cause),
			uint32(boot.Path),
			uint32(boot.Lost),
			uint32(boot.Ratio),
			stats.Resyncs,
			stats.Persists,
			stats.PersistFailures,
		), nil
	})

	// Responses
	d.Register(protocol.MsgTime, "time", "high=%u low=%u", nil)
	d.Register(protocol.MsgStatus, "status",
		"state=%c cause=%c path=%c lost=%c ratio=%u resyncs=%u persists=%u persist_failures=%u", nil)
	d.Register(protocol.MsgError, "error", "id=%u code=%c", nil)
}

func timeReply(t uint64) []byte {
	return protocol.AppendMessage(nil, protocol.MsgTime, uint32(t>>32), uint32(t))
}
