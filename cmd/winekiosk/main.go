package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"winekiosk/catalog"
	"winekiosk/config"
	"winekiosk/inventory"
	"winekiosk/kiosk"
	"winekiosk/messaging"
	"winekiosk/workflow"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "winekiosk.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("winekiosk", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Wine catalog (static reference data, loaded once)
	cat, err := catalog.Load(cfg.Web.CatalogPath)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	log.Printf("winekiosk: catalog loaded (%d wines)", len(cat.Wines))

	// Bottle store client
	storeClient := inventory.NewClient(cfg.Web.StoreURL, 5*time.Second)

	// Bus client
	busClient, err := messaging.NewClient(&cfg.Messaging)
	if err != nil {
		log.Fatalf("messaging: %v", err)
	}

	// Kiosk
	k := kiosk.New(cfg, busClient, storeClient, cat, workflow.LogSurface{})
	if err := k.Start(); err != nil {
		log.Fatalf("start kiosk: %v", err)
	}
	defer k.Stop()

	log.Printf("winekiosk: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("winekiosk: shutting down...")
}
