package www

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"winekiosk/config"
	"winekiosk/store"
)

type Handlers struct {
	store    store.Store
	sessions *sessions.CookieStore
	pinHash  string
}

// NewRouter builds the bottle store service router. The store interface is
// the single-writer boundary; handlers never touch the files directly.
func NewRouter(st store.Store, cfg *config.WebConfig) *chi.Mux {
	h := &Handlers{
		store:    st,
		sessions: sessions.NewCookieStore([]byte(cfg.SessionKey)),
		pinHash:  cfg.PinHash,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Get("/inventory", h.handleInventory)
	r.Get("/extracted", h.handleExtracted)
	r.Post("/update-inventory", h.handleUpdateInventory)
	r.Post("/swap-bottles", h.handleSwapBottles)
	r.Post("/remove-bottle", h.handleRemoveBottle)
	r.Post("/add-extracted-bottle", h.handleAddExtracted)
	r.Delete("/remove-extracted-bottle/{barcode}", h.handleRemoveExtracted)

	r.Post("/auth/pin", h.handlePinLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/session", h.handleSessionCheck)

	return r
}
