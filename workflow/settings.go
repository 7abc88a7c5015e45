package workflow

import (
	"encoding/json"
	"log"

	"winekiosk/dispatch"
	"winekiosk/inventory"
)

// Settings handles the zone climate and lighting commands and the home
// screen re-render. These are single request/acknowledge exchanges, not
// multi-step protocols.
type Settings struct {
	bus     CommandSender
	store   StoreAPI
	surface Surface
}

func NewSettings(bus CommandSender, store StoreAPI, surface Surface) *Settings {
	return &Settings{bus: bus, store: store, surface: surface}
}

// SaveZone publishes the climate command and, in parallel, writes the new
// values straight to the store so the home screen reflects them without
// waiting for the controller round trip. The settings_updated event remains
// the authoritative confirmation.
func (s *Settings) SaveZone(zone, mode string, target, humidity int) {
	s.bus.SendCommand("update_setting", map[string]any{
		"mode":     mode,
		"target":   target,
		"humidity": humidity,
		"zone":     zone,
	})
	if err := s.store.UpdateInventory(&inventory.UpdateInventoryRequest{
		Mode:     mode,
		Target:   target,
		Humidity: humidity,
		Zone:     zone,
	}); err != nil {
		log.Printf("settings: optimistic inventory write: %v", err)
		s.surface.Alert("Could not save zone settings")
	}
}

// SaveZoneLighting publishes the per-zone brightness command.
func (s *Settings) SaveZoneLighting(zone string, brightness int, colorTemp string) {
	s.bus.SendCommand("set_brightness", map[string]any{
		"zone":       zone,
		"value":      brightness,
		"color_temp": colorTemp,
	})
}

// SaveFridgeLighting publishes the global lighting mode command.
func (s *Settings) SaveFridgeLighting(energySaving, nightMode bool) {
	s.bus.SendCommand("set_lighting_mode", map[string]any{
		"energy_saving": energySaving,
		"night_mode":    nightMode,
	})
}

func (s *Settings) Actions() dispatch.Table {
	return dispatch.Table{
		"settings_updated":  s.onSettingsUpdated,
		"inventory_updated": s.onInventoryUpdated,
	}
}

func (s *Settings) onSettingsUpdated(data json.RawMessage) {
	s.RenderHome()
	s.surface.HideModal(ModalZoneParams)
}

func (s *Settings) onInventoryUpdated(data json.RawMessage) {
	s.RenderHome()
}

// RenderHome re-renders the home screen from a freshly fetched snapshot.
func (s *Settings) RenderHome() {
	inv, err := s.store.Snapshot()
	if err != nil {
		log.Printf("settings: fetch snapshot: %v", err)
		return
	}
	s.surface.ShowModal(ModalHome, inv)
}

// LightingStatus is the flat payload arriving on the wildcard lighting
// topic; unlike system events it carries its fields beside the action tag.
type LightingStatus struct {
	Action      string  `json:"action"`
	Zone        string  `json:"zone"`
	Brightness  int     `json:"brightness"`
	Temperature float64 `json:"temperature"`
}

// HandleLightingStatus consumes one raw message from the lighting topic.
func (s *Settings) HandleLightingStatus(raw []byte) {
	var status LightingStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		log.Printf("settings: bad lighting status: %v", err)
		return
	}
	if status.Action != "lighting_status" {
		return
	}
	s.surface.ShowModal(ModalHome, status)
}
