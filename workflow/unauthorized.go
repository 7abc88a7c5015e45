package workflow

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"winekiosk/catalog"
	"winekiosk/dispatch"
)

// TakenBottle is one entry of the unauthorized-removal modal list.
type TakenBottle struct {
	Barcode string
	Wine    catalog.Wine
	Drawer  string
	Pos     int
	TakenAt time.Time
}

// Unauthorized watches for bottle removals no workflow asked for. Each one
// is recorded in the extracted ledger and given a short countdown to be
// put back; when the countdown expires the removal is committed. At most
// one countdown runs at a time: a second removal force-finalizes the first.
type Unauthorized struct {
	bus     CommandSender
	store   StoreAPI
	catalog *catalog.Catalog
	surface Surface

	ticks    int
	interval time.Duration

	mu        sync.Mutex
	modalOpen bool
	active    *TakenBottle
	remaining int
	gen       int // invalidates stale countdown goroutines
	stop      chan struct{}
	view      []TakenBottle
}

func NewUnauthorized(bus CommandSender, store StoreAPI, cat *catalog.Catalog, surface Surface, ticks int, interval time.Duration) *Unauthorized {
	if ticks <= 0 {
		ticks = 5
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Unauthorized{
		bus:      bus,
		store:    store,
		catalog:  cat,
		surface:  surface,
		ticks:    ticks,
		interval: interval,
	}
}

func (w *Unauthorized) Actions() dispatch.Table {
	return dispatch.Table{
		"bottle_event": w.onBottleEvent,
	}
}

func (w *Unauthorized) onBottleEvent(data json.RawMessage) {
	var evt bottleEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("unauthorized: bad bottle_event payload: %v", err)
		return
	}
	if evt.Event != "removed" {
		return
	}

	inv, err := w.store.Snapshot()
	if err != nil {
		log.Printf("unauthorized: fetch snapshot: %v", err)
		return
	}
	pos := inv.Drawers[evt.Drawer].Position(evt.Position)
	if pos == nil || pos.Barcode == "" {
		return
	}
	wine, ok := w.catalog.Lookup(pos.Barcode)
	if !ok {
		return
	}
	bottle := TakenBottle{
		Barcode: pos.Barcode,
		Wine:    wine,
		Drawer:  evt.Drawer,
		Pos:     evt.Position,
		TakenAt: time.Now(),
	}

	w.mu.Lock()
	w.surface.HideModal(ModalUnauthorizedSuccess)
	w.surface.HideModal(ModalUnauthorizedReturned)
	w.openModalLocked()

	if err := w.store.AddExtracted(bottle.Barcode, bottle.Drawer, bottle.Pos); err != nil {
		log.Printf("unauthorized: record extraction: %v", err)
	}

	// One active countdown at a time: a running one is finalized now,
	// before the new bottle's countdown starts.
	prev := w.stopCountdownLocked()
	if prev != nil {
		w.commitRemovalLocked(prev)
	}

	w.view = append([]TakenBottle{bottle}, w.view...)
	w.surface.ShowModal(ModalUnauthorized, w.snapshotViewLocked())
	w.startCountdownLocked(&bottle)
	w.mu.Unlock()
}

// OpenModal (re)opens the taken-bottles modal. The list is rebuilt from the
// ledger's current contents rather than maintained incrementally, so the
// server-side 3-hour expiry pruning can never drift from what is shown.
// Re-opening without a new removal changes nothing.
func (w *Unauthorized) OpenModal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.modalOpen = false
	w.openModalLocked()
	w.surface.ShowModal(ModalUnauthorized, w.snapshotViewLocked())
}

// TakenCount reports how many bottles the modal currently lists.
func (w *Unauthorized) TakenCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.view)
}

// CountdownActive reports whether a removal countdown is running.
func (w *Unauthorized) CountdownActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active != nil
}

// Stop cancels any running countdown without committing it.
func (w *Unauthorized) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopCountdownLocked()
}

func (w *Unauthorized) openModalLocked() {
	if w.modalOpen {
		return
	}
	w.modalOpen = true
	w.rebuildViewLocked()
}

func (w *Unauthorized) rebuildViewLocked() {
	ledger, err := w.store.Extracted()
	if err != nil {
		log.Printf("unauthorized: fetch ledger: %v", err)
		return
	}
	view := w.view[:0]
	for barcode, entry := range ledger {
		wine, ok := w.catalog.Lookup(barcode)
		if !ok {
			continue
		}
		for _, loc := range entry.Locations {
			view = append(view, TakenBottle{
				Barcode: barcode,
				Wine:    wine,
				Drawer:  loc.Drawer,
				Pos:     loc.Position,
				TakenAt: loc.Timestamp,
			})
		}
	}
	// Most recent extraction first.
	sort.Slice(view, func(i, j int) bool { return view[i].TakenAt.After(view[j].TakenAt) })
	w.view = view
}

func (w *Unauthorized) snapshotViewLocked() []TakenBottle {
	out := make([]TakenBottle, len(w.view))
	copy(out, w.view)
	return out
}

func (w *Unauthorized) startCountdownLocked(bottle *TakenBottle) {
	w.active = bottle
	w.remaining = w.ticks
	w.gen++
	gen := w.gen
	stop := make(chan struct{})
	w.stop = stop
	w.surface.ShowModal(ModalUnauthorizedCountdown, w.remaining)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.mu.Lock()
				if w.gen != gen {
					w.mu.Unlock()
					return
				}
				w.remaining--
				w.surface.ShowModal(ModalUnauthorizedCountdown, w.remaining)
				if w.remaining <= 0 {
					done := w.active
					w.active = nil
					w.stop = nil
					w.commitRemovalLocked(done)
					w.mu.Unlock()
					return
				}
				w.mu.Unlock()
			}
		}
	}()
}

// stopCountdownLocked cancels the running countdown, returning the bottle
// it was guarding, or nil when none was running.
func (w *Unauthorized) stopCountdownLocked() *TakenBottle {
	if w.stop == nil {
		return nil
	}
	close(w.stop)
	w.stop = nil
	w.gen++
	prev := w.active
	w.active = nil
	return prev
}

func (w *Unauthorized) commitRemovalLocked(bottle *TakenBottle) {
	if bottle == nil {
		return
	}
	if err := w.store.RemoveBottle(bottle.Barcode, bottle.Drawer, bottle.Pos); err != nil {
		log.Printf("unauthorized: commit removal of %s: %v", bottle.Barcode, err)
	}
	w.surface.ShowModal(ModalUnauthorizedSuccess, bottle.Wine)
}
