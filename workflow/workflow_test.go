package workflow

import (
	"sync"

	"winekiosk/catalog"
	"winekiosk/inventory"
	"winekiosk/store"
)

type sentCommand struct {
	action string
	fields map[string]any
}

// fakeBus records every command a workflow publishes.
type fakeBus struct {
	mu   sync.Mutex
	sent []sentCommand
}

func (b *fakeBus) SendCommand(action string, fields map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentCommand{action: action, fields: fields})
}

func (b *fakeBus) actions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.sent))
	for i, c := range b.sent {
		out[i] = c.action
	}
	return out
}

func (b *fakeBus) last() sentCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		return sentCommand{}
	}
	return b.sent[len(b.sent)-1]
}

type removedBottle struct {
	barcode  string
	drawer   string
	position int
}

// fakeStore is an in-memory StoreAPI.
type fakeStore struct {
	mu      sync.Mutex
	inv     *store.Inventory
	ledger  store.Ledger
	snapErr error

	removed  []removedBottle
	updates  []inventory.UpdateInventoryRequest
	ledgered []removedBottle
}

func newFakeStore(inv *store.Inventory) *fakeStore {
	if inv == nil {
		inv = &store.Inventory{Drawers: map[string]*store.Drawer{}}
	}
	return &fakeStore{inv: inv, ledger: store.Ledger{}}
}

func (f *fakeStore) Snapshot() (*store.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return f.inv, nil
}

func (f *fakeStore) Extracted() (store.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger, nil
}

func (f *fakeStore) UpdateInventory(req *inventory.UpdateInventoryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, *req)
	return nil
}

func (f *fakeStore) RemoveBottle(barcode, drawer string, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, removedBottle{barcode, drawer, position})
	delete(f.ledger, barcode)
	return nil
}

func (f *fakeStore) AddExtracted(barcode, drawer string, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := f.ledger[barcode]
	if entry == nil {
		entry = &store.LedgerEntry{}
		f.ledger[barcode] = entry
	}
	entry.Locations = append(entry.Locations, store.ExtractedLocation{Drawer: drawer, Position: position})
	f.ledgered = append(f.ledgered, removedBottle{barcode, drawer, position})
	return nil
}

func (f *fakeStore) RemoveExtracted(barcode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ledger, barcode)
	return nil
}

func (f *fakeStore) removedBottles() []removedBottle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]removedBottle, len(f.removed))
	copy(out, f.removed)
	return out
}

// recSurface records surface calls in order.
type recSurface struct {
	mu     sync.Mutex
	shown  []string
	data   map[string]any
	hidden []string
	alerts []string
	navs   []string
}

func newRecSurface() *recSurface {
	return &recSurface{data: map[string]any{}}
}

func (s *recSurface) ShowModal(name string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, name)
	s.data[name] = data
}

func (s *recSurface) HideModal(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = append(s.hidden, name)
}

func (s *recSurface) Alert(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, message)
}

func (s *recSurface) Navigate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navs = append(s.navs, path)
}

func (s *recSurface) lastShown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.shown) == 0 {
		return ""
	}
	return s.shown[len(s.shown)-1]
}

func (s *recSurface) hasShown(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.shown {
		if n == name {
			return true
		}
	}
	return false
}

func (s *recSurface) shownData(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[name]
}

func (s *recSurface) navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.navs))
	copy(out, s.navs)
	return out
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{Wines: map[string]catalog.Wine{
		"8410415520628": {Name: "Rioja Gran Reserva", Type: "Red wine", Volume: "750ml", MealType: []string{"meat"}},
		"8410415520629": {Name: "Albariño", Type: "White wine", Volume: "750ml", MealType: []string{"fish"}},
		"8410415520630": {Name: "Provence Rosé", Type: "Rosé", Volume: "750ml", Atmosphere: []string{"picnic"}},
	}}
}

// testInventory puts the red in drawer1/1 and the white in drawer2/3.
func testInventory() *store.Inventory {
	return &store.Inventory{Drawers: map[string]*store.Drawer{
		"drawer1": {
			Zone: "Upper", Mode: "auto", Temperature: 14, Humidity: 65,
			Positions: map[string]*store.Position{
				"1": {Occupied: true, Barcode: "8410415520628", Name: "Rioja Gran Reserva"},
				"2": {},
			},
		},
		"drawer2": {
			Zone: "Lower", Mode: "auto", Temperature: 9, Humidity: 70,
			Positions: map[string]*store.Position{
				"3": {Occupied: true, Barcode: "8410415520629", Name: "Albariño"},
				"4": {},
			},
		},
	}}
}
