package workflow

import (
	"encoding/json"
	"log"
	"sync"

	"winekiosk/catalog"
	"winekiosk/dispatch"
)

type LoadState int

const (
	LoadIdle LoadState = iota
	LoadAwaitingScan
	LoadBottleIdentified
	LoadAwaitingPlacement
	LoadWrongPosition
	LoadDone
)

// Load runs the bottle-loading workflow. Scanning is passive: the hardware
// scanner publishes barcode_scanned events, so between operations the
// machine sits in awaiting_scan with no session.
type Load struct {
	bus     CommandSender
	store   StoreAPI
	catalog *catalog.Catalog
	surface Surface

	mu      sync.Mutex
	state   LoadState
	session *Session
}

func NewLoad(bus CommandSender, store StoreAPI, cat *catalog.Catalog, surface Surface) *Load {
	return &Load{bus: bus, store: store, catalog: cat, surface: surface, state: LoadIdle}
}

// Open enters the load screen. No command is sent; the scanner drives the
// next transition.
func (l *Load) Open() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = LoadAwaitingScan
	l.session = nil
	l.surface.ShowModal(ModalLoadWelcome, nil)
}

func (l *Load) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Load) Actions() dispatch.Table {
	return dispatch.Table{
		"barcode_scanned":      l.onBarcodeScanned,
		"expect_bottle":        l.onExpectBottle,
		"placement_error":      l.onPlacementError,
		"bottle_placed":        l.onBottlePlaced,
		"wrong_bottle_removed": l.onWrongBottleRemoved,
	}
}

type barcodeScannedEvent struct {
	Barcode string `json:"barcode"`
}

func (l *Load) onBarcodeScanned(data json.RawMessage) {
	var evt barcodeScannedEvent
	if err := json.Unmarshal(data, &evt); err != nil || evt.Barcode == "" {
		log.Printf("load: bad barcode_scanned payload: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoadAwaitingScan && l.state != LoadIdle {
		return
	}

	// A bottle with pending extraction locations is a return, not a new
	// load: hand its prior locations back to the controller and wait for
	// the hardware result. The new-bottle path is bypassed entirely.
	if locations := l.pendingReturnLocations(evt.Barcode); len(locations) > 0 {
		l.bus.SendCommand("start_return", map[string]any{
			"barcode":   evt.Barcode,
			"locations": locations,
		})
		l.state = LoadAwaitingPlacement
		l.session = newSession("return")
		l.session.Barcode = evt.Barcode
		l.surface.ShowModal(ModalLoadWelcome, map[string]any{"processing": true})
		return
	}

	wine, ok := l.catalog.Lookup(evt.Barcode)
	if !ok {
		// Recoverable: stay in awaiting_scan, no command emitted.
		l.surface.ShowModal(ModalScanError, evt.Barcode)
		l.state = LoadAwaitingScan
		return
	}

	l.session = newSession("load")
	l.session.Barcode = evt.Barcode
	l.session.Name = wine.Name
	l.state = LoadBottleIdentified
	l.surface.ShowModal(ModalLoadInfo, wine)
}

// Confirm is the user accepting the identified bottle.
func (l *Load) Confirm() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoadBottleIdentified || l.session == nil {
		return
	}
	l.bus.SendCommand("start_load", map[string]any{
		"barcode": l.session.Barcode,
		"name":    l.session.Name,
	})
	l.state = LoadAwaitingPlacement
	l.surface.HideModal(ModalLoadInfo)
}

func (l *Load) onExpectBottle(data json.RawMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoadAwaitingPlacement {
		return
	}
	var evt struct {
		Drawer   string `json:"drawer"`
		Position int    `json:"position"`
	}
	json.Unmarshal(data, &evt)
	l.surface.ShowModal(ModalLoadDrawer, evt)
}

func (l *Load) onPlacementError(data json.RawMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoadAwaitingPlacement {
		return
	}
	var evt struct {
		Drawer           string `json:"drawer"`
		Position         int    `json:"position"`
		ExpectedPosition int    `json:"expected_position"`
	}
	json.Unmarshal(data, &evt)
	l.state = LoadWrongPosition
	l.surface.HideModal(ModalLoadDrawer)
	l.surface.ShowModal(ModalLoadError, evt)
}

type bottlePlacedEvent struct {
	Success     bool   `json:"success"`
	Drawer      string `json:"drawer"`
	Position    int    `json:"position"`
	Barcode     string `json:"barcode"`
	WineName    string `json:"wine_name"`
	CloseScreen bool   `json:"close_screen"`
	Error       string `json:"error"`
}

func (l *Load) onBottlePlaced(data json.RawMessage) {
	var evt bottlePlacedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("load: bad bottle_placed payload: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoadAwaitingPlacement && l.state != LoadWrongPosition {
		return
	}

	if evt.Success {
		l.state = LoadDone
		l.session = nil
		l.surface.HideModal(ModalLoadDrawer)
		l.surface.HideModal(ModalLoadError)
		l.surface.ShowModal(ModalLoadSuccess, evt)
		return
	}
	if evt.CloseScreen {
		// Controller-side timeout. The hardware already stood down, so no
		// further command goes out: just clear the session and fall back
		// to the scan screen.
		l.session = nil
		l.state = LoadAwaitingScan
		l.surface.HideModal(ModalLoadDrawer)
		l.surface.HideModal(ModalLoadError)
		l.surface.HideModal(ModalLoadInfo)
		l.surface.ShowModal(ModalLoadWelcome, nil)
	}
}

func (l *Load) onWrongBottleRemoved(data json.RawMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoadWrongPosition {
		return
	}
	// Operator pulled the wrong bottle back out; correction in progress.
	l.state = LoadAwaitingPlacement
	l.surface.HideModal(ModalLoadError)
	l.surface.ShowModal(ModalLoadDrawer, nil)
}

// Back is user navigation away from the current modal. Mid-operation it
// cancels the load so the controller releases the armed drawer; on the
// terminal screens it emits the reset command the hardware expects.
func (l *Load) Back() {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case LoadBottleIdentified, LoadAwaitingPlacement:
		if l.session != nil {
			l.bus.SendCommand("cancel_load", map[string]any{"barcode": l.session.Barcode})
		}
		l.session = nil
		l.state = LoadAwaitingScan
	case LoadWrongPosition:
		// Hardware keeps the error LED until told to retry.
		l.bus.SendCommand("retry_placement", nil)
		l.session = nil
		l.state = LoadAwaitingScan
	case LoadDone:
		l.bus.SendCommand("load_complete", nil)
		l.state = LoadAwaitingScan
	}
	l.surface.HideModal(ModalLoadInfo)
	l.surface.HideModal(ModalLoadDrawer)
	l.surface.HideModal(ModalLoadError)
	l.surface.HideModal(ModalLoadSuccess)
	l.surface.ShowModal(ModalLoadWelcome, nil)
}

// Done is the success screen's explicit finish: reset the hardware and go
// home.
func (l *Load) Done() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoadDone {
		return
	}
	l.bus.SendCommand("load_complete", nil)
	l.state = LoadIdle
	l.surface.Navigate("/")
}

// Close leaves the load screen, cancelling any in-flight operation.
func (l *Load) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil && (l.state == LoadBottleIdentified || l.state == LoadAwaitingPlacement || l.state == LoadWrongPosition) {
		l.bus.SendCommand("cancel_load", map[string]any{"barcode": l.session.Barcode})
	}
	l.session = nil
	l.state = LoadIdle
}

func (l *Load) pendingReturnLocations(barcode string) []map[string]any {
	ledger, err := l.store.Extracted()
	if err != nil {
		log.Printf("load: fetch extracted ledger: %v", err)
		return nil
	}
	entry, ok := ledger[barcode]
	if !ok || len(entry.Locations) == 0 {
		return nil
	}
	locations := make([]map[string]any, 0, len(entry.Locations))
	for _, loc := range entry.Locations {
		locations = append(locations, map[string]any{
			"drawer":   loc.Drawer,
			"position": loc.Position,
		})
	}
	return locations
}
