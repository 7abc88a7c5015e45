// Package workflow holds the per-operation state machines that coordinate
// the kiosk with the fridge controller: load, unload, swap, unauthorized
// removal, and zone/lighting settings. Each machine reacts to bus events
// and user actions, publishes commands, and drives the touchscreen through
// the Surface interface.
package workflow

import (
	"github.com/google/uuid"

	"winekiosk/inventory"
	"winekiosk/store"
)

// CommandSender publishes a kiosk command on the outbound topic. Delivery
// is fire-and-forget; the controller answers on the event topic.
type CommandSender interface {
	SendCommand(action string, fields map[string]any)
}

// StoreAPI is the slice of the bottle store service the workflows use.
// Satisfied by *inventory.Client.
type StoreAPI interface {
	Snapshot() (*store.Inventory, error)
	Extracted() (store.Ledger, error)
	UpdateInventory(req *inventory.UpdateInventoryRequest) error
	RemoveBottle(barcode, drawer string, position int) error
	AddExtracted(barcode, drawer string, position int) error
	RemoveExtracted(barcode string) error
}

var _ StoreAPI = (*inventory.Client)(nil)

// Session is one in-progress user/hardware interaction. It is transient:
// created when an operation starts, discarded on any terminal state.
type Session struct {
	ID      string
	Kind    string
	Barcode string
	Name    string
	Drawer  string
	Pos     int
}

func newSession(kind string) *Session {
	return &Session{ID: uuid.New().String(), Kind: kind}
}
