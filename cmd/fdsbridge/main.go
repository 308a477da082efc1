package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fdsbridge/bridge"
	"fdsbridge/cad"
	"fdsbridge/config"
	"fdsbridge/messaging"
	"fdsbridge/protocol"
	"fdsbridge/scenario"
	"fdsbridge/store"
	"fdsbridge/www"
)

func main() {
	configPath := flag.String("config", "fdsbridge.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	scenarioID := flag.String("scenario", "", "scenario to load on startup")
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for web.admin_password_hash and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := www.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Open database
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Scenario manager: load the requested scenario or start a fresh one.
	scenarios := scenario.NewManager()
	if *scenarioID != "" {
		s, err := db.LoadScenario(*scenarioID)
		if err != nil {
			log.Fatalf("load scenario %s: %v", *scenarioID, err)
		}
		scenarios.Replace(s)
		log.Printf("loaded scenario %s (%s)", s.ID, s.Name)
	} else {
		s := scenario.New("default", "untitled")
		scenarios.Replace(s)
	}

	// Bridge wires protocol, scenario, persistence and events together.
	registry := protocol.NewRegistry(cfg.Protocol.PendingTTL)
	br := bridge.New(bridge.Config{
		Scenarios: scenarios,
		Registry:  registry,
		DB:        db,
	})
	defer br.Close()
	registry.StartSweeper(cfg.Protocol.SweepInterval)

	// Optional broker publisher for sync/selection events.
	pub := messaging.NewPublisher(&cfg.Messaging)
	if pub.Enabled() {
		if err := pub.Connect(); err != nil {
			log.Printf("messaging connect: %v", err)
		} else {
			messaging.SetupBridgeListeners(pub, br.Bus())
		}
		defer pub.Close()
	}

	// CAD websocket connection. No automatic reconnect: if the link drops,
	// restart or reconnect via an external supervisor.
	client := cad.NewClient(cfg.CAD.URL, br.HandleFrame, br.ConnectionChanged)
	br.Bind(client)

	dialCtx, cancelDial := context.WithTimeout(context.Background(), cfg.CAD.DialTimeout)
	if err := client.Open(dialCtx); err != nil {
		log.Printf("cad connect: %v (editor API stays up, sends are dropped)", err)
	}
	cancelDial()
	defer client.Close()

	// HTTP API for the editor front-end
	router, stopWeb := www.NewRouter(br, &cfg.Web, db)
	defer stopWeb()

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("fdsbridge listening on %s (CAD endpoint %s)", addr, cfg.CAD.URL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	// Persist the current scenario before dropping the connection.
	if s := scenarios.Current(); s != nil {
		if err := db.SaveScenario(s); err != nil {
			log.Printf("persist scenario on shutdown: %v", err)
		}
	}

	client.Close()
	stopWeb()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}
