package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rexliu/talkliner/pkg/config"
	"github.com/rexliu/talkliner/pkg/ipc"
	"github.com/rexliu/talkliner/pkg/journal"
	"github.com/rexliu/talkliner/pkg/logging"
	"github.com/rexliu/talkliner/pkg/messenger"
	"github.com/rexliu/talkliner/pkg/web"
)

func main() {
	profile := flag.String("profile", "./_dev_profile", "Path to profile directory")
	socket := flag.String("socket", "", "Override IPC socket path (optional)")
	flag.Parse()

	logger := logging.New("talklinerd")
	logger.Printf("starting daemon with profile %s", *profile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *profile, *socket, logger); err != nil {
		logger.Printf("fatal error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(profileDir string, logger *logging.Logger) (*config.ProfileConfig, error) {
	cfg, found, err := config.LoadOrDefault(profileDir, filepath.Base(profileDir))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !found {
		logger.Printf("no %s in %s; using defaults", config.FileName, profileDir)
	}
	return cfg, nil
}

func run(ctx context.Context, profileDir, socketOverride string, logger *logging.Logger) error {
	if err := os.MkdirAll(profileDir, 0o700); err != nil {
		return err
	}
	cfg, err := loadConfig(profileDir, logger)
	if err != nil {
		return err
	}
	logCfg := cfg.Logging
	logCfg.FilePath = config.ResolvePath(profileDir, logCfg.FilePath)
	if err := logger.Configure(logCfg); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Close()

	m := messenger.New()
	installChannels(m)

	if cfg.Journal.Enabled {
		store, err := journal.Open(config.ResolvePath(profileDir, cfg.Journal.DBPath))
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		m.Observe(store.Observer(logger))
	}

	events := newEventHub(logger)
	m.Observe(events.observe)

	if err := writeManifest(profileDir, m); err != nil {
		logger.Printf("warning: manifest write failed: %v", err)
	}

	socketPath := socketOverride
	if socketPath == "" {
		socketPath = config.ResolvePath(profileDir, cfg.IPC.SocketPath)
	}
	if err := cleanupSocket(socketPath); err != nil {
		return err
	}

	srv := ipc.NewServer(m, logger)
	srv.RegisterStream(ipc.MethodSubscribeEvents, events.subscribe)
	if err := srv.Start(ctx, socketPath); err != nil {
		return fmt.Errorf("start ipc: %w", err)
	}
	defer func() {
		srv.Stop()
		cleanupSocket(socketPath)
	}()

	var webSrv *web.Server
	if cfg.HTTP.Enabled {
		webSrv = web.New(web.Options{
			StaticDir:   config.ResolvePath(profileDir, cfg.HTTP.StaticDir),
			AllowOrigin: cfg.HTTP.AllowOrigin,
		}, m, logger.Logger)
		go func() {
			if err := webSrv.Serve(cfg.HTTP.Listen); err != nil {
				logger.Error("web server stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Printf("daemon ready; socket at %s; channels %v", socketPath, m.Channels())

	<-ctx.Done()
	logger.Println("shutting down")
	if webSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webSrv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("web shutdown: %v", err)
		}
	}
	return nil
}

func cleanupSocket(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}
