package workflow

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"winekiosk/catalog"
	"winekiosk/dispatch"
)

type UnloadState int

const (
	UnloadBrowsing UnloadState = iota
	UnloadConfirming
	UnloadAwaitingRemoval
	UnloadWrongBottle
	UnloadDone
)

// Unload runs the bottle-unloading workflow. Browsing offers only bottles
// that are physically present; the drawer/position shown at confirmation is
// re-resolved from a fresh snapshot, never a cached one.
type Unload struct {
	bus     CommandSender
	store   StoreAPI
	catalog *catalog.Catalog
	surface Surface

	// HomeDelay is how long the timeout screen lingers before navigating
	// home. Overridable in tests.
	HomeDelay time.Duration

	mu      sync.Mutex
	state   UnloadState
	session *Session
}

func NewUnload(bus CommandSender, store StoreAPI, cat *catalog.Catalog, surface Surface) *Unload {
	return &Unload{
		bus:       bus,
		store:     store,
		catalog:   cat,
		surface:   surface,
		HomeDelay: 2 * time.Second,
		state:     UnloadBrowsing,
	}
}

// Product is one selectable catalog entry on the browse screen.
type Product struct {
	Barcode string
	Wine    catalog.Wine
}

// Open enters the unload screen and returns the bottles available for
// unload: the catalog restricted to barcodes occupying a position right now.
func (u *Unload) Open() []Product {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state = UnloadBrowsing
	u.session = nil

	products := u.presentProducts()
	u.surface.ShowModal(ModalUnloadBrowse, products)
	return products
}

// SuggestByMeal is the "suggest by meal" variant: the full catalog filtered
// by pairing tags, present or not.
func (u *Unload) SuggestByMeal(tag string) []Product {
	var products []Product
	for _, barcode := range u.catalog.FilterByPairing(tag) {
		wine, _ := u.catalog.Lookup(barcode)
		products = append(products, Product{Barcode: barcode, Wine: wine})
	}
	u.surface.ShowModal(ModalMealRecommend, products)
	return products
}

// Select resolves the chosen bottle's current location from a fresh
// snapshot and moves to the confirmation screen.
func (u *Unload) Select(barcode string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != UnloadBrowsing {
		return
	}

	wine, ok := u.catalog.Lookup(barcode)
	if !ok {
		u.surface.Alert("Unknown bottle")
		return
	}
	inv, err := u.store.Snapshot()
	if err != nil {
		log.Printf("unload: fetch snapshot: %v", err)
		u.surface.Alert("Inventory unavailable")
		return
	}
	drawer, position, found := inv.FindBarcode(barcode)
	if !found {
		u.surface.Alert(wine.Name + " is not currently in the fridge")
		return
	}

	u.session = newSession("unload")
	u.session.Barcode = barcode
	u.session.Name = wine.Name
	u.session.Drawer = drawer
	u.session.Pos = position
	u.state = UnloadConfirming
	u.surface.ShowModal(ModalUnloadInfo, map[string]any{
		"wine":     wine,
		"drawer":   drawer,
		"position": position,
	})
}

// Confirm publishes start_unload and waits for the removal.
func (u *Unload) Confirm() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != UnloadConfirming || u.session == nil {
		return
	}
	u.bus.SendCommand("start_unload", map[string]any{
		"barcode": u.session.Barcode,
		"name":    u.session.Name,
	})
	u.state = UnloadAwaitingRemoval
	u.surface.ShowModal(ModalUnloadDrawer, map[string]any{
		"drawer":   u.session.Drawer,
		"position": u.session.Pos,
	})
}

func (u *Unload) State() UnloadState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *Unload) Actions() dispatch.Table {
	return dispatch.Table{
		"expect_removal":        u.onExpectRemoval,
		"wrong_bottle_removed":  u.onWrongBottleRemoved,
		"wrong_bottle_replaced": u.onWrongBottleReplaced,
		"bottle_unloaded":       u.onBottleUnloaded,
		"unload_timeout":        u.onUnloadTimeout,
	}
}

func (u *Unload) onExpectRemoval(data json.RawMessage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != UnloadAwaitingRemoval {
		return
	}
	// Informational: the controller lit the position LED.
	u.surface.ShowModal(ModalUnloadDrawer, nil)
}

func (u *Unload) onWrongBottleRemoved(data json.RawMessage) {
	var evt struct {
		Position         int `json:"position"`
		ExpectedPosition int `json:"expected_position"`
	}
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("unload: bad wrong_bottle_removed payload: %v", err)
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != UnloadAwaitingRemoval {
		return
	}
	u.state = UnloadWrongBottle
	u.surface.ShowModal(ModalUnloadError, evt)
}

func (u *Unload) onWrongBottleReplaced(data json.RawMessage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != UnloadWrongBottle {
		return
	}
	u.state = UnloadAwaitingRemoval
	u.surface.HideModal(ModalUnloadError)
	u.surface.ShowModal(ModalUnloadDrawer, nil)
}

func (u *Unload) onBottleUnloaded(data json.RawMessage) {
	var evt struct {
		Success bool   `json:"success"`
		Barcode string `json:"barcode"`
	}
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("unload: bad bottle_unloaded payload: %v", err)
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != UnloadAwaitingRemoval && u.state != UnloadWrongBottle {
		return
	}
	u.state = UnloadDone
	u.session = nil
	u.surface.HideModal(ModalUnloadDrawer)
	u.surface.HideModal(ModalUnloadInfo)
	if evt.Success {
		u.surface.ShowModal(ModalUnloadSuccess, nil)
	}
}

func (u *Unload) onUnloadTimeout(data json.RawMessage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != UnloadAwaitingRemoval && u.state != UnloadWrongBottle {
		return
	}
	u.state = UnloadBrowsing
	u.session = nil
	u.surface.HideModal(ModalUnloadDrawer)
	u.surface.HideModal(ModalUnloadError)
	u.surface.Alert("Unload timed out")
	// Navigation, not just a modal close: the timeout screen yields the
	// whole screen back to home after a beat.
	time.AfterFunc(u.HomeDelay, func() {
		u.surface.Navigate("/")
	})
}

// Cancel is user-initiated back navigation from the removal screen. The
// controller is told so it drops the armed position.
func (u *Unload) Cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch u.state {
	case UnloadAwaitingRemoval, UnloadWrongBottle:
		u.bus.SendCommand("cancel_unload", nil)
	case UnloadConfirming:
		// Nothing armed yet; no command needed.
	default:
		return
	}
	u.session = nil
	u.state = UnloadBrowsing
	u.surface.HideModal(ModalUnloadInfo)
	u.surface.HideModal(ModalUnloadDrawer)
	u.surface.HideModal(ModalUnloadError)
	u.surface.ShowModal(ModalUnloadBrowse, nil)
}

// Close leaves the unload screen, cancelling any in-flight removal.
func (u *Unload) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == UnloadAwaitingRemoval || u.state == UnloadWrongBottle {
		u.bus.SendCommand("cancel_unload", nil)
	}
	u.session = nil
	u.state = UnloadBrowsing
}

func (u *Unload) presentProducts() []Product {
	inv, err := u.store.Snapshot()
	if err != nil {
		log.Printf("unload: fetch snapshot: %v", err)
		return nil
	}
	present := inv.OccupiedBarcodes()
	var products []Product
	for barcode := range present {
		if wine, ok := u.catalog.Lookup(barcode); ok {
			products = append(products, Product{Barcode: barcode, Wine: wine})
		}
	}
	return products
}
