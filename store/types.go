package store

import (
	"strconv"
	"time"
)

// Inventory is the shared snapshot of every drawer in the fridge. It is
// eventually consistent from the kiosk's point of view: readers re-fetch it
// before any decision that depends on current occupancy.
type Inventory struct {
	Drawers     map[string]*Drawer `json:"drawers"`
	LastUpdated string             `json:"last_updated,omitempty"`
}

type Drawer struct {
	Zone        string               `json:"zone"`
	Mode        string               `json:"mode"`
	Temperature int                  `json:"temperature"`
	Humidity    int                  `json:"humidity"`
	Positions   map[string]*Position `json:"positions"`
}

type Position struct {
	Occupied   bool    `json:"occupied"`
	Barcode    string  `json:"barcode,omitempty"`
	Name       string  `json:"name,omitempty"`
	Weight     float64 `json:"weight,omitempty"`
	PlacedDate string  `json:"placed_date,omitempty"`
}

// Position returns the slot at a numeric index; drawer status events carry
// positions as integers while the snapshot keys them as strings.
func (d *Drawer) Position(idx int) *Position {
	if d == nil {
		return nil
	}
	return d.Positions[strconv.Itoa(idx)]
}

// FindBarcode returns the drawer id and position index currently occupied by
// the given barcode, or ok=false if the bottle is not in the fridge.
func (inv *Inventory) FindBarcode(barcode string) (drawer string, position int, ok bool) {
	for id, d := range inv.Drawers {
		for key, pos := range d.Positions {
			if pos != nil && pos.Occupied && pos.Barcode == barcode {
				idx, err := strconv.Atoi(key)
				if err != nil {
					continue
				}
				return id, idx, true
			}
		}
	}
	return "", 0, false
}

// OccupiedBarcodes returns the set of barcodes currently in the fridge.
func (inv *Inventory) OccupiedBarcodes() map[string]bool {
	set := make(map[string]bool)
	for _, d := range inv.Drawers {
		for _, pos := range d.Positions {
			if pos != nil && pos.Occupied && pos.Barcode != "" {
				set[pos.Barcode] = true
			}
		}
	}
	return set
}

// Location identifies one bottle slot.
type Location struct {
	Drawer   string `json:"drawer"`
	Position int    `json:"position"`
}

// Ledger records bottles removed without an authorized unload, keyed by
// barcode. Entries expire server-side; see the store's prune on write.
type Ledger map[string]*LedgerEntry

type LedgerEntry struct {
	Locations []ExtractedLocation `json:"locations"`
}

type ExtractedLocation struct {
	Drawer    string    `json:"drawer"`
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}
