package kiosk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"winekiosk/catalog"
	"winekiosk/config"
	"winekiosk/inventory"
	"winekiosk/messaging"
	"winekiosk/store"
	"winekiosk/workflow"
)

type published struct {
	topic   string
	payload []byte
}

// fakeBus is an in-memory messaging.Client: it records publishes and hands
// subscription handlers back to the test for direct injection.
type fakeBus struct {
	mu        sync.Mutex
	connected bool
	published []published
	handlers  map[string]messaging.Handler
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: map[string]messaging.Handler{}}
}

func (b *fakeBus) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *fakeBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{topic: topic, payload: payload})
}

func (b *fakeBus) Subscribe(topic string, h messaging.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = h
	return nil
}

func (b *fakeBus) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

func (b *fakeBus) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBus) inject(topic string, payload []byte) {
	b.mu.Lock()
	h := b.handlers[topic]
	b.mu.Unlock()
	if h != nil {
		h(payload, topic)
	}
}

func (b *fakeBus) actions(t *testing.T) []string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, p := range b.published {
		var cmd messaging.Command
		require.NoError(t, json.Unmarshal(p.payload, &cmd))
		out = append(out, cmd.Action())
	}
	return out
}

func testKiosk(t *testing.T) (*Kiosk, *fakeBus) {
	t.Helper()
	inv := &store.Inventory{Drawers: map[string]*store.Drawer{
		"drawer1": {Zone: "Upper", Positions: map[string]*store.Position{
			"1": {Occupied: true, Barcode: "8410415520628", Name: "Rioja Gran Reserva"},
		}},
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/inventory":
			json.NewEncoder(w).Encode(inv)
		case "/extracted":
			json.NewEncoder(w).Encode(store.Ledger{})
		default:
			json.NewEncoder(w).Encode(inventory.Response{Success: true})
		}
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Kiosk.TickInterval = 5 * time.Millisecond
	bus := newFakeBus()
	cat := &catalog.Catalog{Wines: map[string]catalog.Wine{
		"8410415520628": {Name: "Rioja Gran Reserva", Type: "Red wine"},
	}}
	k := New(cfg, bus, inventory.NewClient(srv.URL, time.Second), cat, workflow.NopSurface{})
	require.NoError(t, k.Start())
	t.Cleanup(k.Stop)
	return k, bus
}

func TestStartSubscribesAndConnects(t *testing.T) {
	k, bus := testKiosk(t)
	_ = k

	require.True(t, bus.IsConnected())
	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Contains(t, bus.handlers, "winefridge/system/status")
	require.Contains(t, bus.handlers, "winefridge/+/status")
}

func TestSendCommandWrapsEnvelope(t *testing.T) {
	k, bus := testKiosk(t)
	k.SendCommand("start_load", map[string]any{"barcode": "8410415520628"})

	bus.mu.Lock()
	p := bus.published[len(bus.published)-1]
	bus.mu.Unlock()
	require.Equal(t, "winefridge/system/command", p.topic)

	var cmd messaging.Command
	require.NoError(t, json.Unmarshal(p.payload, &cmd))
	require.Equal(t, "start_load", cmd.Action())
	require.Equal(t, "web", cmd.Source)
	require.Equal(t, "8410415520628", cmd.Data["barcode"])
}

func TestOpenSwapArmsAndGoHomeDisarms(t *testing.T) {
	k, bus := testKiosk(t)

	k.OpenSwap()
	require.Equal(t, []string{"start_swap"}, bus.actions(t))

	k.GoHome()
	require.Equal(t, []string{"start_swap", "cancel_swap"}, bus.actions(t))
}

func TestScreenSwitchClosesPrevious(t *testing.T) {
	k, bus := testKiosk(t)

	k.OpenSwap()
	k.OpenLoad()
	// Opening the load screen closes the swap screen, which disarms.
	require.Equal(t, []string{"start_swap", "cancel_swap"}, bus.actions(t))
}

func TestActiveScreenOwnsBottleEvents(t *testing.T) {
	k, bus := testKiosk(t)
	s := k.OpenSwap()

	bus.inject("winefridge/system/status",
		[]byte(`{"action":"bottle_event","data":{"event":"removed","drawer":"drawer1","position":1}}`))

	// The swap screen consumed the event; the unauthorized guard stayed out.
	require.Equal(t, 1, s.RemovedCount())
	require.False(t, k.Guard().CountdownActive())
}

func TestUnsolicitedRemovalHitsGuard(t *testing.T) {
	k, bus := testKiosk(t)

	bus.inject("winefridge/system/status",
		[]byte(`{"action":"bottle_event","data":{"event":"removed","drawer":"drawer1","position":1}}`))

	require.True(t, k.Guard().CountdownActive())
	k.Guard().Stop()
}

func TestDispatchedWorkflowEvents(t *testing.T) {
	k, bus := testKiosk(t)
	l := k.OpenLoad()

	bus.inject("winefridge/system/status",
		[]byte(`{"action":"barcode_scanned","data":{"barcode":"8410415520628"}}`))
	require.Equal(t, workflow.LoadBottleIdentified, l.State())
}

func TestMalformedEventDropped(t *testing.T) {
	k, bus := testKiosk(t)
	_ = k
	// Must not panic or kill the subscription.
	bus.inject("winefridge/system/status", []byte(`garbage`))
	bus.inject("winefridge/system/status", []byte(`{"data":{}}`))
}
