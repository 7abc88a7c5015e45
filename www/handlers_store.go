package www

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"winekiosk/inventory"
	"winekiosk/store"
)

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{"status": "ok"})
}

func (h *Handlers) handleInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.store.Inventory()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, inv)
}

func (h *Handlers) handleExtracted(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.store.Extracted()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, ledger)
}

func (h *Handlers) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req inventory.UpdateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Zone == "" {
		h.jsonError(w, "zone is required", http.StatusBadRequest)
		return
	}
	if err := h.store.UpdateZoneSettings(req.Zone, req.Mode, req.Target, req.Humidity); err != nil {
		h.storeError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"success": true})
}

func (h *Handlers) handleSwapBottles(w http.ResponseWriter, r *http.Request) {
	var req inventory.SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.From.Drawer == "" || req.To.Drawer == "" {
		h.jsonError(w, "from and to locations are required", http.StatusBadRequest)
		return
	}
	if err := h.store.SwapBottles(req.From, req.To); err != nil {
		h.storeError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"success": true})
}

func (h *Handlers) handleRemoveBottle(w http.ResponseWriter, r *http.Request) {
	var req inventory.BottleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Barcode == "" || req.Drawer == "" {
		h.jsonError(w, "barcode and drawer are required", http.StatusBadRequest)
		return
	}
	if err := h.store.RemoveBottle(req.Barcode, req.Drawer, req.Position); err != nil {
		h.storeError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"success": true})
}

func (h *Handlers) handleAddExtracted(w http.ResponseWriter, r *http.Request) {
	var req inventory.BottleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Barcode == "" || req.Drawer == "" {
		h.jsonError(w, "barcode and drawer are required", http.StatusBadRequest)
		return
	}
	if err := h.store.AddExtracted(req.Barcode, req.Drawer, req.Position); err != nil {
		h.storeError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"success": true})
}

func (h *Handlers) handleRemoveExtracted(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	if barcode == "" {
		h.jsonError(w, "barcode is required", http.StatusBadRequest)
		return
	}
	if err := h.store.RemoveExtracted(barcode); err != nil {
		h.storeError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"success": true})
}

func (h *Handlers) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.jsonError(w, err.Error(), http.StatusInternalServerError)
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
