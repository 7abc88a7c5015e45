package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSettings() (*Settings, *fakeBus, *fakeStore, *recSurface) {
	bus := &fakeBus{}
	st := newFakeStore(testInventory())
	surf := newRecSurface()
	s := NewSettings(bus, st, surf)
	return s, bus, st, surf
}

func TestSettingsSaveZoneWritesCommandAndStore(t *testing.T) {
	s, bus, st, _ := newTestSettings()
	s.SaveZone("upper", "manual", 16, 70)

	require.Equal(t, []string{"update_setting"}, bus.actions())
	cmd := bus.last()
	require.Equal(t, "upper", cmd.fields["zone"])
	require.Equal(t, "manual", cmd.fields["mode"])
	require.Equal(t, 16, cmd.fields["target"])
	require.Equal(t, 70, cmd.fields["humidity"])

	// The optimistic store write goes out alongside the command.
	require.Len(t, st.updates, 1)
	require.Equal(t, "upper", st.updates[0].Zone)
	require.Equal(t, 16, st.updates[0].Target)
}

func TestSettingsSaveZoneLighting(t *testing.T) {
	s, bus, _, _ := newTestSettings()
	s.SaveZoneLighting("lower", 80, "warm")

	cmd := bus.last()
	require.Equal(t, "set_brightness", cmd.action)
	require.Equal(t, "lower", cmd.fields["zone"])
	require.Equal(t, 80, cmd.fields["value"])
	require.Equal(t, "warm", cmd.fields["color_temp"])
}

func TestSettingsSaveFridgeLighting(t *testing.T) {
	s, bus, _, _ := newTestSettings()
	s.SaveFridgeLighting(true, false)

	cmd := bus.last()
	require.Equal(t, "set_lighting_mode", cmd.action)
	require.Equal(t, true, cmd.fields["energy_saving"])
	require.Equal(t, false, cmd.fields["night_mode"])
}

func TestSettingsUpdatedRerendersHome(t *testing.T) {
	s, _, _, surf := newTestSettings()
	s.Actions()["settings_updated"](json.RawMessage(`{}`))

	require.True(t, surf.hasShown(ModalHome))
	require.Contains(t, surf.hidden, ModalZoneParams)
}

func TestInventoryUpdatedRerendersHome(t *testing.T) {
	s, _, _, surf := newTestSettings()
	s.Actions()["inventory_updated"](json.RawMessage(`{}`))
	require.True(t, surf.hasShown(ModalHome))
}

func TestHandleLightingStatus(t *testing.T) {
	s, _, _, surf := newTestSettings()
	s.HandleLightingStatus([]byte(`{"action":"lighting_status","zone":"upper","brightness":60,"temperature":13.5}`))

	status, ok := surf.shownData(ModalHome).(LightingStatus)
	require.True(t, ok)
	require.Equal(t, "upper", status.Zone)
	require.Equal(t, 60, status.Brightness)
	require.InDelta(t, 13.5, status.Temperature, 0.001)
}

func TestHandleLightingStatusIgnoresOtherActions(t *testing.T) {
	s, _, _, surf := newTestSettings()
	s.HandleLightingStatus([]byte(`{"action":"drawer_status","zone":"upper"}`))
	require.False(t, surf.hasShown(ModalHome))

	s.HandleLightingStatus([]byte(`not json`))
	require.False(t, surf.hasShown(ModalHome))
}
