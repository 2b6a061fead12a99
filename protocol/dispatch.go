package protocol

import (
	"sort"
	"strconv"
	"sync"
)

// Handler decodes its arguments from args and returns a reply payload,
// which may be empty.
type Handler func(args *[]byte) (reply []byte, err error)

// Command describes a registered message
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "high=%u low=%u"
	Handler Handler
}

// CommandError reports a command ID with no handler.
type CommandError struct {
	ID uint16
}

func (e *CommandError) Error() string {
	return "unknown command ID: " + strconv.Itoa(int(e.ID))
}

// Dispatcher maps message IDs to handlers
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		commands: make(map[uint16]*Command),
	}
}

// Register adds a command. A nil handler declares a response message.
// Registering an ID twice replaces the earlier entry.
func (d *Dispatcher) Register(id uint16, name, format string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
}

// Lookup returns the command registered under id.
func (d *Dispatcher) Lookup(id uint16) (*Command, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cmd, ok := d.commands[id]
	return cmd, ok
}

// Dispatch runs the handler for id.
func (d *Dispatcher) Dispatch(id uint16, args *[]byte) ([]byte, error) {
	cmd, ok := d.Lookup(id)
	if !ok || cmd.Handler == nil {
		return nil, &CommandError{ID: id}
	}
	return cmd.Handler(args)
}

// Dictionary lists every registered message as "id name format", one per
// line, ordered by ID.
func (d *Dispatcher) Dictionary() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]int, 0, len(d.commands))
	for id := range d.commands {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	dict := ""
	for _, id := range ids {
		cmd := d.commands[uint16(id)]
		dict += strconv.Itoa(id) + " " + cmd.Name
		if cmd.Format != "" {
			dict += " " + cmd.Format
		}
		dict += "\n"
	}
	return dict
}
