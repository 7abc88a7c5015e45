package store

import (
	"errors"
	"fmt"

	"winekiosk/config"
)

// ErrNotFound is returned when an operation names a bottle or ledger entry
// that does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the bottle store behind the HTTP service. Every method is a
// complete read-modify-write: implementations serialize them so concurrent
// writers (settings save, swap commit, removal, ledger) cannot interleave.
type Store interface {
	Inventory() (*Inventory, error)
	UpdateZoneSettings(zone, mode string, target, humidity int) error
	SwapBottles(from, to Location) error
	RemoveBottle(barcode, drawer string, position int) error

	Extracted() (Ledger, error)
	AddExtracted(barcode, drawer string, position int) error
	RemoveExtracted(barcode string) error

	Close() error
}

func Open(cfg *config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "json":
		return openJSONStore(cfg)
	case "sqlite":
		return openSQLiteStore(cfg)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}
