package workflow

import "log"

func logf(format string, args ...any) {
	log.Printf("surface: "+format, args...)
}

// Surface is the UI adapter the state machines drive. The concrete
// implementation owns modal visibility and rendering on the touchscreen;
// the machines only name the modal and hand over display data.
type Surface interface {
	ShowModal(name string, data any)
	HideModal(name string)
	Alert(message string)
	Navigate(path string)
}

// Modal names, one per screen overlay of the kiosk frontend.
const (
	ModalLoadWelcome   = "load-bottle-welcome"
	ModalScanError     = "scan-bottle-error"
	ModalLoadInfo      = "load-bottle-info"
	ModalLoadDrawer    = "load-bottle-drawer"
	ModalLoadSuccess   = "load-bottle-success"
	ModalLoadError     = "load-bottle-error"

	ModalUnloadBrowse  = "unload-bottle-manually"
	ModalMealRecommend = "meal-recommend"
	ModalUnloadInfo    = "unload-bottle-info"
	ModalUnloadDrawer  = "take-bottle-drawer"
	ModalUnloadSuccess = "take-bottle-success"
	ModalUnloadError   = "take-bottle-error"

	ModalSwap          = "swap-bottles"
	ModalSwapSuccess   = "swap-bottles-success"
	ModalSwapError     = "swap-error"

	ModalUnauthorized          = "unauthorized-unload"
	ModalUnauthorizedCountdown = "unauthorized-countdown"
	ModalUnauthorizedSuccess   = "unauthorized-unload-success"
	ModalUnauthorizedReturned  = "unauthorized-returned-success"

	ModalHome       = "home"
	ModalZoneParams = "zone-params"
)

// NopSurface discards everything. Useful for headless runs and tests that
// only care about commands and state.
type NopSurface struct{}

func (NopSurface) ShowModal(string, any) {}
func (NopSurface) HideModal(string)      {}
func (NopSurface) Alert(string)          {}
func (NopSurface) Navigate(string)       {}

// LogSurface traces every surface call to the standard logger. The actual
// rendering layer subscribes to the same calls; this keeps the machines
// observable when running without a display.
type LogSurface struct{}

func (LogSurface) ShowModal(name string, data any) { logf("show %s %v", name, data) }
func (LogSurface) HideModal(name string)           { logf("hide %s", name) }
func (LogSurface) Alert(message string)            { logf("alert: %s", message) }
func (LogSurface) Navigate(path string)            { logf("navigate %s", path) }
