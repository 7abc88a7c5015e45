// Package kiosk wires the bus client, event dispatcher, and workflow state
// machines together and owns the screen lifecycle: one screen is visible at
// a time, and navigating away closes the previous screen's workflow,
// cancelling whatever it had armed on the hardware.
package kiosk

import (
	"fmt"
	"log"
	"sync"

	"winekiosk/catalog"
	"winekiosk/config"
	"winekiosk/dispatch"
	"winekiosk/inventory"
	"winekiosk/messaging"
	"winekiosk/workflow"
)

// Screen is an open workflow: it owns an action table while visible and is
// closed on navigation away.
type Screen interface {
	Actions() dispatch.Table
	Close()
}

type Kiosk struct {
	cfg     *config.Config
	bus     messaging.Client
	disp    *dispatch.Dispatcher
	store   *inventory.Client
	catalog *catalog.Catalog
	surface workflow.Surface

	settings *workflow.Settings
	guard    *workflow.Unauthorized

	mu      sync.Mutex
	current Screen
}

func New(cfg *config.Config, bus messaging.Client, store *inventory.Client, cat *catalog.Catalog, surface workflow.Surface) *Kiosk {
	k := &Kiosk{
		cfg:     cfg,
		bus:     bus,
		store:   store,
		catalog: cat,
		surface: surface,
	}
	k.disp = dispatch.New(bus)
	k.settings = workflow.NewSettings(k, store, surface)
	k.guard = workflow.NewUnauthorized(k, store, cat, surface,
		cfg.Kiosk.CountdownTicks, cfg.Kiosk.TickInterval)
	return k
}

// Start connects the bus and installs the always-armed handlers: the
// unauthorized-removal guard and the home-screen refresh events.
func (k *Kiosk) Start() error {
	if err := k.bus.Connect(); err != nil {
		return fmt.Errorf("kiosk: connect bus: %w", err)
	}

	base := dispatch.Table{}
	for action, h := range k.guard.Actions() {
		base[action] = h
	}
	for action, h := range k.settings.Actions() {
		base[action] = h
	}
	k.disp.SetBase(base)

	if err := k.bus.Subscribe(k.cfg.Messaging.EventTopic, func(payload []byte, _ string) {
		if err := k.disp.Dispatch(payload); err != nil {
			log.Printf("kiosk: dispatch: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("kiosk: subscribe events: %w", err)
	}
	if err := k.bus.Subscribe(k.cfg.Messaging.LightingTopic, func(payload []byte, _ string) {
		k.settings.HandleLightingStatus(payload)
	}); err != nil {
		// Kafka installations have no wildcard topic; lighting status is
		// a degradation, not a startup failure.
		log.Printf("kiosk: lighting subscription unavailable: %v", err)
	}

	k.settings.RenderHome()
	log.Printf("kiosk: started")
	return nil
}

func (k *Kiosk) Stop() {
	k.mu.Lock()
	if k.current != nil {
		k.current.Close()
		k.current = nil
	}
	k.mu.Unlock()
	k.guard.Stop()
	k.bus.Disconnect()
	log.Printf("kiosk: stopped")
}

// SendCommand implements workflow.CommandSender: it wraps the action in the
// command envelope and publishes it on the outbound topic.
func (k *Kiosk) SendCommand(action string, fields map[string]any) {
	cmd := messaging.NewCommand(action, fields)
	data, err := cmd.Encode()
	if err != nil {
		log.Printf("kiosk: encode command %s: %v", action, err)
		return
	}
	k.bus.Publish(k.cfg.Messaging.CommandTopic, data)
}

// OpenLoad navigates to the load screen.
func (k *Kiosk) OpenLoad() *workflow.Load {
	l := workflow.NewLoad(k, k.store, k.catalog, k.surface)
	k.setScreen(l)
	l.Open()
	return l
}

// OpenUnload navigates to the unload screen.
func (k *Kiosk) OpenUnload() *workflow.Unload {
	u := workflow.NewUnload(k, k.store, k.catalog, k.surface)
	k.setScreen(u)
	u.Open()
	return u
}

// OpenSwap navigates to the swap screen and arms swap mode.
func (k *Kiosk) OpenSwap() *workflow.Swap {
	s := workflow.NewSwap(k, k.store, k.catalog, k.surface)
	k.setScreen(s)
	s.Open()
	return s
}

// GoHome closes the current screen and re-renders the home view.
func (k *Kiosk) GoHome() {
	k.setScreen(nil)
	k.settings.RenderHome()
}

// Settings exposes the settings workflow for the home screen forms.
func (k *Kiosk) Settings() *workflow.Settings { return k.settings }

// Guard exposes the unauthorized-removal workflow for modal reopening.
func (k *Kiosk) Guard() *workflow.Unauthorized { return k.guard }

func (k *Kiosk) setScreen(s Screen) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current != nil {
		k.current.Close()
	}
	k.current = s
	if s != nil {
		k.disp.SetActive(s.Actions())
	} else {
		k.disp.SetActive(nil)
	}
}
