package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"clipper/internal/blobstore"
	"clipper/internal/clipper"
	"clipper/internal/config"
	"clipper/internal/processor"
	"clipper/internal/processor/imaging"
	"clipper/internal/store"
)

// app bundles the opened store and the service built on it for one command.
type app struct {
	cfg     *config.Config
	store   *store.Store
	service *clipper.Service
	metrics *prometheus.Registry
}

func withService(cfg *config.Config, flags *globalFlags, fn func(*app) error) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	runErr := fn(a)
	if flags != nil && strings.TrimSpace(flags.metricsFile) != "" {
		if err := prometheus.WriteToTextfile(flags.metricsFile, a.metrics); err != nil && runErr == nil {
			runErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	return runErr
}

func openApp(cfg *config.Config) (*app, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := slog.Default()
	backends, err := buildBackends(cfg, filepath.Dir(cfg.DBPath))
	if err != nil {
		return nil, err
	}
	pipeline, err := buildPipeline(cfg.Processors)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	metrics := prometheus.NewRegistry()
	observer, err := clipper.NewPrometheusObserver("", metrics)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	svc, err := clipper.New(clipper.Config{
		Files:           st,
		Attachments:     st,
		Backends:        backends,
		Pipeline:        pipeline,
		DefaultBackend:  cfg.DefaultBackend,
		ScratchDir:      cfg.ScratchDir,
		MaxScratchBytes: cfg.MaxScratchBytes,
		PruneBatchSize:  cfg.PruneBatchSize,
		Logger:          logger,
		Observer:        observer,
		HTTPClient:      &http.Client{Timeout: cfg.FetchTimeout},
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &app{cfg: cfg, store: st, service: svc, metrics: metrics}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Default().Warn("close database", "error", err)
	}
}

// buildBackends registers every configured backend. Relative local roots
// are resolved against baseDir.
func buildBackends(cfg *config.Config, baseDir string) (*blobstore.Registry, error) {
	registry := blobstore.NewRegistry()
	for _, name := range cfg.BackendNames() {
		bc := cfg.Backends[name]

		var backend blobstore.Backend
		switch bc.Driver {
		case config.DriverLocal:
			root := bc.Root
			if !filepath.IsAbs(root) {
				root = filepath.Join(baseDir, root)
			}
			local, err := blobstore.NewLocalFS(root)
			if err != nil {
				return nil, fmt.Errorf("backend %q: %w", name, err)
			}
			backend = local
		case config.DriverMemory:
			backend = blobstore.NewMemory()
		default:
			return nil, fmt.Errorf("backend %q: unknown driver %q", name, bc.Driver)
		}
		if bc.Compress {
			backend = blobstore.NewCompressed(backend)
		}
		if err := registry.Register(name, backend, bc.PublicPrefix); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func buildPipeline(procs []config.ProcessorConfig) (*processor.Pipeline, error) {
	builtins := imaging.Builtins()
	pipeline := processor.NewPipeline()
	for _, pc := range procs {
		ctor, ok := builtins[pc.Name]
		if !ok {
			return nil, fmt.Errorf("unknown processor %q (available: %s)", pc.Name, strings.Join(imaging.Names(), ", "))
		}
		p := ctor()
		if len(pc.Mimes) > 0 {
			p = processor.Scoped{Processor: p, Mimes: pc.Mimes}
		}
		pipeline.Register(p)
	}
	return pipeline, nil
}
