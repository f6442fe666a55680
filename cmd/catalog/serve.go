package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ItemCatalog/internal/catalog"
	"ItemCatalog/internal/config"
	"ItemCatalog/pkg/kit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := kit.NewLogger(service, cfg.LogLevel, cfg.Development())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := catalog.OpenStore(cfg.DataFile, catalog.StoreDeps{Log: log, Registry: reg})
	engine := catalog.NewQueryEngine(store, catalog.QueryDeps{
		Log:       log,
		Registry:  reg,
		CacheSize: cfg.QueryCacheSize,
	})

	h := catalog.NewHandler(&catalog.Server{Catalog: engine, Log: log}, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
		TrustProxy:     cfg.TrustProxy,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Watch {
		if err := store.Watch(ctx, cfg.PollInterval); err != nil {
			log.Warn("file watcher disabled", zap.Error(err))
		}
	}

	g.Go(func() error {
		err := kit.RunHTTPServer(ctx, cfg.Addr(), h, log, cfg.ShutdownTimeout)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		return store.Close()
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info("process terminated")
	return nil
}
