package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"winekiosk/config"
)

// jsonStore keeps the inventory and extracted-bottle ledger in two JSON
// files, the appliance's native format. One mutex serializes every
// read-modify-write, which is the single-writer queue the store boundary
// has to provide: the kiosk's writers (settings, swap, removal, ledger)
// share these files with no other coordination.
type jsonStore struct {
	mu           sync.Mutex
	invPath      string
	ledgerPath   string
	ledgerExpiry time.Duration
}

func openJSONStore(cfg *config.StoreConfig) (*jsonStore, error) {
	s := &jsonStore{
		invPath:      cfg.InventoryPath,
		ledgerPath:   cfg.LedgerPath,
		ledgerExpiry: cfg.LedgerExpiry,
	}
	if s.ledgerExpiry <= 0 {
		s.ledgerExpiry = 3 * time.Hour
	}
	if _, err := s.loadInventory(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *jsonStore) Inventory() (*Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadInventory()
}

func (s *jsonStore) UpdateZoneSettings(zone, mode string, target, humidity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.loadInventory()
	if err != nil {
		return err
	}
	zoneName := titleZone(zone)
	matched := false
	for _, d := range inv.Drawers {
		if d.Zone == zoneName {
			d.Mode = mode
			d.Temperature = target
			d.Humidity = humidity
			matched = true
		}
	}
	if !matched {
		return fmt.Errorf("%w: zone %q", ErrNotFound, zone)
	}
	inv.LastUpdated = time.Now().Format(time.RFC3339)
	return s.saveInventory(inv)
}

func (s *jsonStore) SwapBottles(from, to Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.loadInventory()
	if err != nil {
		return err
	}
	a := inv.Drawers[from.Drawer].Position(from.Position)
	b := inv.Drawers[to.Drawer].Position(to.Position)
	if a == nil || b == nil {
		return fmt.Errorf("%w: swap %s/%d <-> %s/%d", ErrNotFound, from.Drawer, from.Position, to.Drawer, to.Position)
	}
	*a, *b = *b, *a
	inv.LastUpdated = time.Now().Format(time.RFC3339)
	return s.saveInventory(inv)
}

func (s *jsonStore) RemoveBottle(barcode, drawer string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.loadInventory()
	if err != nil {
		return err
	}
	pos := inv.Drawers[drawer].Position(position)
	if pos == nil || !pos.Occupied || pos.Barcode != barcode {
		return fmt.Errorf("%w: bottle %s at %s/%d", ErrNotFound, barcode, drawer, position)
	}
	*pos = Position{}
	inv.LastUpdated = time.Now().Format(time.RFC3339)
	if err := s.saveInventory(inv); err != nil {
		return err
	}

	// A committed removal also clears the bottle's ledger entry: it is no
	// longer pending return.
	ledger, err := s.loadLedger()
	if err != nil {
		return err
	}
	if _, ok := ledger[barcode]; ok {
		delete(ledger, barcode)
		return s.saveLedger(ledger)
	}
	return nil
}

func (s *jsonStore) Extracted() (Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.loadLedger()
	if err != nil {
		return nil, err
	}
	return s.pruneExpired(ledger), nil
}

func (s *jsonStore) AddExtracted(barcode, drawer string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.loadLedger()
	if err != nil {
		return err
	}
	ledger = s.pruneExpired(ledger)
	entry := ledger[barcode]
	if entry == nil {
		entry = &LedgerEntry{}
		ledger[barcode] = entry
	}
	entry.Locations = append(entry.Locations, ExtractedLocation{
		Drawer:    drawer,
		Position:  position,
		Timestamp: time.Now(),
	})
	return s.saveLedger(ledger)
}

func (s *jsonStore) RemoveExtracted(barcode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.loadLedger()
	if err != nil {
		return err
	}
	if _, ok := ledger[barcode]; !ok {
		return fmt.Errorf("%w: extracted %s", ErrNotFound, barcode)
	}
	delete(ledger, barcode)
	return s.saveLedger(s.pruneExpired(ledger))
}

func (s *jsonStore) Close() error { return nil }

// pruneExpired drops ledger locations older than the expiry window and
// entries left with no locations.
func (s *jsonStore) pruneExpired(ledger Ledger) Ledger {
	cutoff := time.Now().Add(-s.ledgerExpiry)
	for barcode, entry := range ledger {
		kept := entry.Locations[:0]
		for _, loc := range entry.Locations {
			if loc.Timestamp.After(cutoff) {
				kept = append(kept, loc)
			}
		}
		entry.Locations = kept
		if len(kept) == 0 {
			delete(ledger, barcode)
		}
	}
	return ledger
}

func (s *jsonStore) loadInventory() (*Inventory, error) {
	data, err := os.ReadFile(s.invPath)
	if err != nil {
		return nil, fmt.Errorf("store: read inventory: %w", err)
	}
	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("store: parse inventory: %w", err)
	}
	if inv.Drawers == nil {
		inv.Drawers = map[string]*Drawer{}
	}
	return &inv, nil
}

func (s *jsonStore) saveInventory(inv *Inventory) error {
	return writeFileAtomic(s.invPath, inv)
}

func (s *jsonStore) loadLedger() (Ledger, error) {
	data, err := os.ReadFile(s.ledgerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Ledger{}, nil
		}
		return nil, fmt.Errorf("store: read ledger: %w", err)
	}
	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("store: parse ledger: %w", err)
	}
	if ledger == nil {
		ledger = Ledger{}
	}
	return ledger, nil
}

func (s *jsonStore) saveLedger(ledger Ledger) error {
	return writeFileAtomic(s.ledgerPath, ledger)
}

func writeFileAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// titleZone normalizes a zone name to the capitalized form the inventory
// file uses ("upper" -> "Upper").
func titleZone(zone string) string {
	if zone == "" {
		return zone
	}
	lower := strings.ToLower(zone)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
