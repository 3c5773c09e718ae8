// Command rjournald serves a reason journal over HTTP and, optionally, the
// Redis protocol.
//
// It opens the journal once (running WAL recovery), accepts appends on
// POST /v1/records or RJ.APPEND and exposes verification, stats and
// Prometheus metrics. SIGINT or SIGTERM stops the listeners first and then
// closes the journal, so every acknowledged append is durable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yndnr/reasonjournal/internal/config"
	"github.com/yndnr/reasonjournal/internal/core/service"
	"github.com/yndnr/reasonjournal/internal/infra/buildinfo"
	"github.com/yndnr/reasonjournal/internal/infra/confloader"
	"github.com/yndnr/reasonjournal/internal/infra/shutdown"
	"github.com/yndnr/reasonjournal/internal/infra/tlsroots"
	"github.com/yndnr/reasonjournal/internal/server/httpserver"
	"github.com/yndnr/reasonjournal/internal/server/respserver"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/telemetry/logger"
	"github.com/yndnr/reasonjournal/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("rjournald %s\n", buildinfo.String())
		return nil
	}

	cfg, loader, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting rjournald",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"settings", config.Sanitize(cfg))

	reg := metric.Global()

	j, err := openJournal(cfg, log, reg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if err := reg.Register(j.Collector()); err != nil {
		log.Warn("journal collector not registered", "error", err)
	}
	rec := j.Recovery()
	log.Info("journal open",
		"path", j.Path(),
		"session", j.SessionID(),
		"next_sequence", j.NextSequence(),
		"wal", j.WALEnabled(),
		"recovery", rec.Status.String(),
		"replayed", rec.Replayed)

	svc := service.NewJournalService(j)

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Service:      svc,
		Metrics:      reg,
		Logger:       logger.ForComponent(log, "http").Slog(),
		RateLimit:    cfg.Server.HTTP.RateLimit,
		RateBurst:    cfg.Server.HTTP.RateBurst,
		MaxBodyBytes: cfg.Server.HTTP.MaxBodyBytes,
		EnableAudit:  true,
	})
	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)

	sh := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, log.Slog())

	// Hooks run in reverse order: listeners drain before the journal closes.
	sh.OnShutdown("journal", func(ctx context.Context) error {
		return svc.Close()
	})
	sh.OnShutdown("http", httpServer.Shutdown)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var tlsReloader *tlsroots.Reloader
	if cfg.Server.HTTP.TLSCertFile != "" {
		tlsReloader, err = tlsroots.NewReloader(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile,
			tlsroots.WithLogger(logger.ForComponent(log, "tls").Slog()))
		if err != nil {
			svc.Close()
			return err
		}
		go func() {
			if err := tlsReloader.Run(bgCtx); err != nil {
				log.Warn("certificate watcher stopped", "error", err)
			}
		}()
	}

	if *configFile != "" {
		stopWatch, err := watchConfig(*configFile, loader, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			sh.OnShutdown("config-watcher", func(context.Context) error { return stopWatch() })
		}
	}

	if cfg.Server.RESP.Addr != "" {
		respCfg := respserver.DefaultConfig()
		respCfg.Addr = cfg.Server.RESP.Addr
		respCfg.RateLimit = cfg.Server.RESP.RateLimit
		respCfg.RateBurst = cfg.Server.RESP.RateBurst
		respCfg.IdleTimeout = cfg.Server.RESP.IdleTimeout
		respCfg.MaxBulkBytes = int(cfg.Server.HTTP.MaxBodyBytes)
		if cfg.Server.RESP.TLS && tlsReloader != nil {
			respCfg.TLSConfig = tlsReloader.ServerConfig()
		}
		respServer := respserver.New(respCfg, svc, reg, logger.ForComponent(log, "resp").Slog())
		sh.OnShutdown("resp", respServer.Shutdown)

		go func() {
			if err := respServer.ListenAndServe(); err != nil {
				log.Error("RESP server error", "error", err)
				sh.Trigger("resp server failed")
			}
		}()
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "tls", tlsReloader != nil)
		var err error
		if tlsReloader != nil {
			err = httpServer.ListenAndServeTLS(tlsReloader.ServerConfig())
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil {
			log.Error("HTTP server error", "error", err)
			sh.Trigger("http server failed")
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := sh.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// openJournal opens the configured journal with recovery and metrics wired.
func openJournal(cfg *config.Config, log logger.Logger, reg *metric.Registry) (*storage.Journal, error) {
	key, err := config.LoadKey(&cfg.Journal)
	if err != nil {
		return nil, err
	}
	defer key.Close()
	opts, err := cfg.Journal.StorageOptions()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	opts = append(opts,
		storage.WithLogger(log.Slog()),
		storage.WithObserver(reg))
	return storage.OpenWithWAL(cfg.Journal.Path, key.Bytes(), cfg.Journal.WALEnabled, opts...)
}

// watchConfig re-reads the config file on change and applies the settings
// that can change at runtime. Only log.level is live; the rest needs a
// restart and is reported as such.
func watchConfig(path string, loader *confloader.Loader, log logger.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.ForComponent(log, "config").Slog()))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Warn("reloaded config rejected", "error", err)
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Warn("log level not applied", "error", err)
			return
		}
		log.Info("config reloaded", "log_level", logger.Level())
	})
	w.StartAsync()
	return w.Stop, nil
}
