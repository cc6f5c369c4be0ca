package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/events"
	"probatescout-engine/internal/fetch"
	"probatescout-engine/internal/gis"
	"probatescout-engine/internal/httpapi"
	"probatescout-engine/internal/resolve"
	"probatescout-engine/internal/scheduler"
	"probatescout-engine/internal/secrets"
	"probatescout-engine/internal/search"
	"probatescout-engine/internal/store"
)

func main() {
	// Engine data dir: use env if provided (a desktop shell can pass one),
	// else local folder.
	dataDir := os.Getenv("PROBATESCOUT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; a second instance would fight over sqlite
	// and the port.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock failed: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running for %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		raw, err := config.Load(userCfgPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg, vr := config.NormalizeAndValidate(raw)
		if !vr.OK() {
			return config.Config{}, fmt.Errorf("config invalid: %v", vr.Errors)
		}
		for _, warning := range vr.Warnings {
			log.Printf("[config] warning: %s", warning)
		}
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "probatescout.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	limiter := fetch.NewHostLimiter(cfg.Outbound.ReqPerSec, cfg.Outbound.Burst)
	resolver := resolve.New(gis.NewClient(limiter))

	fetcher := fetch.NewClient(limiter)
	if cfg.Outbound.ProxyAccount != "" {
		if tok, err := secrets.GetProxyToken(secrets.ProxyKeyringAccount(cfg)); err != nil {
			log.Printf("[secrets] proxy token unavailable: %v", err)
		} else {
			fetcher.SetProxyToken(tok)
		}
	}
	searcher := search.NewRunner(
		func() config.Config { return cfgVal.Load().(config.Config) },
		fetcher,
		hub,
		db.Pool,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Every(rootCtx, 6*time.Hour, "cleanup", func(context.Context) error {
		if n, err := store.CleanupOldLookups(db.Pool); err != nil {
			return err
		} else if n > 0 {
			log.Printf("[cleanup] lookups removed=%d", n)
		}
		if n, err := store.CleanupOldDocuments(db.Pool); err != nil {
			return err
		} else if n > 0 {
			log.Printf("[cleanup] documents removed=%d", n)
		}
		return nil
	})

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		Resolver:    resolver,
		Search:      searcher,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.RequestID,
			httpapi.Recover,
			httpapi.AccessLog,
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))
	if err := writeTokenFile(dataDir, shutdownToken); err != nil {
		log.Fatalf("shutdown token file: %v", err)
	}

	go func() {
		<-rootCtx.Done()
		hub.PublishTyped("", events.TypeShutdown, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("engine listening on http://%s (data=%s)", addr, dataDir)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
