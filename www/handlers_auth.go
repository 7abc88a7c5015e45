package www

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const sessionName = "winekiosk"

// The settings surface is PIN-gated: the kiosk posts the operator's code
// here and holds the session cookie for subsequent settings saves.

func (h *Handlers) handlePinLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pin == "" {
		h.jsonError(w, "pin is required", http.StatusBadRequest)
		return
	}
	if h.pinHash == "" {
		h.jsonError(w, "pin auth not configured", http.StatusInternalServerError)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.pinHash), []byte(req.Pin)); err != nil {
		h.jsonError(w, "wrong pin", http.StatusUnauthorized)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	if err := session.Save(r, w); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"success": true})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Options.MaxAge = -1
	session.Save(r, w)
	h.jsonOK(w, map[string]any{"success": true})
}

func (h *Handlers) handleSessionCheck(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{"authenticated": h.isAuthenticated(r)})
}

func (h *Handlers) isAuthenticated(r *http.Request) bool {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return false
	}
	auth, _ := session.Values["authenticated"].(bool)
	return auth
}
