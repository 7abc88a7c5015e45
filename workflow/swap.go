package workflow

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"winekiosk/catalog"
	"winekiosk/dispatch"
)

type SwapState int

const (
	SwapIdle SwapState = iota
	SwapModeActive
)

// Swap runs the two-bottle swap workflow. Swap mode is armed proactively on
// screen entry, and the controller's swap_completed event is the single
// source of truth for completion; no client-side reconciliation against the
// store is attempted.
type Swap struct {
	bus     CommandSender
	store   StoreAPI
	catalog *catalog.Catalog
	surface Surface

	mu        sync.Mutex
	state     SwapState
	removed   int
	slots     [2]*Product
}

func NewSwap(bus CommandSender, store StoreAPI, cat *catalog.Catalog, surface Surface) *Swap {
	return &Swap{bus: bus, store: store, catalog: cat, surface: surface}
}

// Open enters the swap screen and arms the hardware.
func (s *Swap) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.state = SwapModeActive
	s.bus.SendCommand("start_swap", nil)
	s.surface.ShowModal(ModalSwap, nil)
}

func (s *Swap) State() SwapState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemovedCount reports how many bottles have been pulled so far.
func (s *Swap) RemovedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

// Slot returns the bottle rendered into placeholder slot 0 or 1, nil when
// empty.
func (s *Swap) Slot(i int) *Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.slots) {
		return nil
	}
	return s.slots[i]
}

func (s *Swap) Actions() dispatch.Table {
	return dispatch.Table{
		"bottle_event":   s.onBottleEvent,
		"swap_completed": s.onSwapCompleted,
		"swap_error":     s.onSwapError,
	}
}

type bottleEvent struct {
	Event    string  `json:"event"`
	Drawer   string  `json:"drawer"`
	Position int     `json:"position"`
	Weight   float64 `json:"weight"`
}

func (s *Swap) onBottleEvent(data json.RawMessage) {
	var evt bottleEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("swap: bad bottle_event payload: %v", err)
		return
	}
	if evt.Event != "removed" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SwapModeActive {
		return
	}

	s.removed++
	if s.removed > 2 {
		// Spurious extra trigger; start the scene over.
		log.Printf("swap: %d bottles removed, resetting", s.removed)
		s.resetScene()
		return
	}

	// Resolve against the snapshot before the controller overwrites the
	// slot, so we still know which bottle was there.
	product := s.resolveBottle(evt.Drawer, evt.Position)
	if product != nil {
		s.slots[s.removed-1] = product
		s.surface.ShowModal(ModalSwap, map[string]any{
			"slot": s.removed - 1,
			"wine": product.Wine,
		})
	}
}

type swapCompletedEvent struct {
	Success bool `json:"success"`
}

func (s *Swap) onSwapCompleted(data json.RawMessage) {
	var evt swapCompletedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("swap: bad swap_completed payload: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SwapModeActive {
		return
	}
	if evt.Success {
		s.surface.ShowModal(ModalSwapSuccess, nil)
	} else {
		s.surface.Alert("Swap failed. Please try again.")
	}
	s.resetScene()
}

type swapErrorEvent struct {
	Error             string `json:"error"`
	Drawer            string `json:"drawer"`
	WrongPosition     int    `json:"wrong_position"`
	ExpectedPositions []int  `json:"expected_positions"`
}

func (s *Swap) onSwapError(data json.RawMessage) {
	var evt swapErrorEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("swap: bad swap_error payload: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SwapModeActive {
		return
	}
	if evt.Error == "wrong_swap_position" {
		// Targeted recovery: name the offending position and the
		// acceptable ones, and leave the mode armed so the operator can
		// self-correct.
		expected := make([]string, len(evt.ExpectedPositions))
		for i, p := range evt.ExpectedPositions {
			expected[i] = fmt.Sprintf("%d", p)
		}
		s.surface.ShowModal(ModalSwapError, map[string]any{
			"wrong_position":     evt.WrongPosition,
			"expected_positions": strings.Join(expected, " or "),
		})
		return
	}
	s.surface.Alert("Swap error: " + evt.Error)
}

// Restart re-arms swap mode after a completed or failed swap.
func (s *Swap) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.state = SwapModeActive
	s.bus.SendCommand("start_swap", nil)
	s.surface.HideModal(ModalSwapSuccess)
	s.surface.ShowModal(ModalSwap, nil)
}

// Close leaves the swap screen, telling the controller to disarm.
func (s *Swap) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SwapModeActive {
		s.bus.SendCommand("cancel_swap", nil)
	}
	s.reset()
}

// resetScene clears counters and placeholders but keeps swap mode armed.
func (s *Swap) resetScene() {
	s.removed = 0
	s.slots = [2]*Product{}
	s.surface.HideModal(ModalSwapError)
	s.surface.ShowModal(ModalSwap, nil)
}

func (s *Swap) reset() {
	s.removed = 0
	s.slots = [2]*Product{}
	s.state = SwapIdle
}

func (s *Swap) resolveBottle(drawer string, position int) *Product {
	inv, err := s.store.Snapshot()
	if err != nil {
		log.Printf("swap: fetch snapshot: %v", err)
		return nil
	}
	pos := inv.Drawers[drawer].Position(position)
	if pos == nil || pos.Barcode == "" {
		return nil
	}
	wine, ok := s.catalog.Lookup(pos.Barcode)
	if !ok {
		return nil
	}
	return &Product{Barcode: pos.Barcode, Wine: wine}
}
