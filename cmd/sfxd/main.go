package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sfxd/internal/api"
	"sfxd/pkg/cache"
	"sfxd/pkg/config"
	"sfxd/pkg/db"
	"sfxd/pkg/library"
	"sfxd/pkg/logging"
	"sfxd/pkg/obs"
	"sfxd/pkg/orchestrator"
	"sfxd/pkg/overlay"
	"sfxd/pkg/resolver"
	"sfxd/pkg/sfx/elevenlabs"
	"sfxd/pkg/store"
	"sfxd/pkg/tracker"
	"sfxd/pkg/version"
)

var (
	configPath = flag.String("config", "configs/sfxd.yaml", "Path to config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	// .env is optional; credentials may come from the config file instead.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	prov := config.NewProvider(configPath, appCfg)

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("sfxd started", "version", version.Version)

	tr := tracker.New()
	lib := library.NewIndex(appCfg.Library.Dir)

	audioCache, err := cache.New(appCfg.Cache.Dir, tr)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	var history api.History
	if appCfg.History.Enabled {
		dbConn, err := db.Init(appCfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize history db: %w", err)
		}
		st := store.NewSQLiteStore(dbConn)
		defer st.Close()
		history = st
	}

	generator := elevenlabs.NewClient(prov, tr)
	res := resolver.New(lib, generator, audioCache, tr, prov)

	registry := overlay.NewRegistry()
	var automation orchestrator.Automation
	if appCfg.OBS.Enabled {
		automation = obs.NewClient(appCfg.OBS)
	}
	orch := orchestrator.New(registry, automation, prov)
	defer orch.Close()

	go evictionLoop(ctx, prov, audioCache)

	srv := api.NewServer(appCfg.Server.Address,
		api.NewTriggerHandler(res, orch, history, logging.RequestLogger),
		api.NewAudioHandler(lib, audioCache),
		api.NewStatusHandler(prov, registry, lib, tr, history),
		api.NewConfigHandler(prov),
		api.NewOverlayHandler(registry),
	)

	printBanner(appCfg, lib)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return runServerLifecycle(ctx, srv, quit)
}

// evictionLoop prunes expired generated clips at startup and then on the
// configured interval.
func evictionLoop(ctx context.Context, prov *config.Provider, c *cache.Cache) {
	run := func() {
		cfg := prov.Current().Cache
		if n := c.EvictOlderThan(time.Duration(cfg.MaxAge)); n > 0 {
			slog.Info("Cache cleanup", "evicted", n)
		}
	}
	run()
	for {
		interval := time.Duration(prov.Current().Cache.EvictionInterval)
		if interval <= 0 {
			interval = time.Hour
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			run()
		}
	}
}

func printBanner(cfg *config.Config, lib *library.Index) {
	keyState := "NOT CONFIGURED - generation disabled"
	if cfg.HasAPIKey() {
		keyState = "configured"
	}
	slog.Info("=====================================================")
	slog.Info("SFX server ready", "address", cfg.Server.Address)
	slog.Info("Trigger URL", "url", fmt.Sprintf("http://%s/trigger?prompt=<text>", cfg.Server.Address))
	slog.Info("Overlay websocket", "url", fmt.Sprintf("ws://%s/ws", cfg.Server.Address))
	slog.Info("Library", "dir", cfg.Library.Dir, "sounds", lib.Count(), "enabled", cfg.Library.Enabled)
	slog.Info("Generation API key", "state", keyState)
	slog.Info("OBS automation", "enabled", cfg.OBS.Enabled)
	slog.Info("=====================================================")
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
