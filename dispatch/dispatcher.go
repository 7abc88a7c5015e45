package dispatch

import (
	"encoding/json"
	"log"
	"sync"

	"winekiosk/messaging"
)

// Handler receives the action-specific data object of an inbound event.
type Handler func(data json.RawMessage)

// Table maps an event's action tag to its handler.
type Table map[string]Handler

// Dispatcher demultiplexes inbound bus events to the workflow that owns the
// action. The active table belongs to the screen currently on display; the
// base table holds the always-armed handlers (unauthorized removal, home
// refresh). The active table wins when both claim an action, which is how
// an in-progress swap keeps ownership of bottle_event.
type Dispatcher struct {
	client messaging.Client

	mu     sync.Mutex
	base   Table
	active Table
}

func New(client messaging.Client) *Dispatcher {
	return &Dispatcher{client: client, base: Table{}, active: Table{}}
}

func (d *Dispatcher) SetBase(t Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == nil {
		t = Table{}
	}
	d.base = t
}

// SetActive installs the action table of the screen being opened, replacing
// the previous screen's table.
func (d *Dispatcher) SetActive(t Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == nil {
		t = Table{}
	}
	d.active = t
}

// Dispatch routes one raw bus message. Handlers run on the caller's
// goroutine, so per-subscription arrival order is preserved. Malformed
// messages are dropped; the parse error is only surfaced when the
// dispatcher was built without a bus client, which is a wiring bug.
func (d *Dispatcher) Dispatch(raw []byte) error {
	evt, err := messaging.ParseEvent(raw)
	if err != nil {
		if d.client == nil {
			return err
		}
		log.Printf("dispatch: dropping malformed event: %v", err)
		return nil
	}

	d.mu.Lock()
	h, ok := d.active[evt.Action]
	if !ok {
		h, ok = d.base[evt.Action]
	}
	d.mu.Unlock()

	if !ok {
		log.Printf("dispatch: no handler for action %q", evt.Action)
		return nil
	}
	h(evt.Data)
	return nil
}
