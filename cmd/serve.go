package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kiesman99/tilecut/internal/catalog"
	"github.com/kiesman99/tilecut/internal/config"
	"github.com/kiesman99/tilecut/internal/extract"
	"github.com/kiesman99/tilecut/internal/mosaic"
	"github.com/kiesman99/tilecut/internal/server"
	"github.com/kiesman99/tilecut/pkg/raster"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for on-demand tiles",
	Long: `Start an HTTP server that renders tiles on demand from the sources listed
in the config file.

Sources are configured as

  sources:
    - name: bay
      path: /data/bay.png
      extent: 37.37,-122.92,38.23,-121.56

Examples:
  # Start server on default port 8080
  tilecut serve --config tilecut.yaml

  # Start server on custom port
  tilecut serve --port 3000

  # Start server with custom bind address
  tilecut serve --bind 0.0.0.0 --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().Uint32("max-zoom", 22, "deepest zoom level served")
	serveCmd.Flags().String("cache", "memory", "tile catalog backend (none|memory|valkey)")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.max_zoom", serveCmd.Flags().Lookup("max-zoom"))
	viper.BindPFlag("cache.backend", serveCmd.Flags().Lookup("cache"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := buildMosaic(cfg)
	if err != nil {
		return err
	}
	if m.Len() == 0 {
		log.Warn("no sources configured, every tile will be a 404")
	}

	store, closeStore, err := openCatalog(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []server.Option{
		server.WithMaxZoom(cfg.Server.MaxZoom),
		server.WithLogger(log),
	}
	if store != nil {
		opts = append(opts, server.WithCatalog(store, cfg.Cache.Backend))
	}
	apiServer := server.NewServer(Version, m, opts...)

	handler := server.NewRouter(apiServer, server.RouterOptions{
		Timeout:     cfg.Server.Timeout,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
		Burst:       cfg.Server.Burst,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Bind, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	log.Info("starting tilecut server",
		zap.String("addr", addr),
		zap.Int("sources", m.Len()),
		zap.String("cache", cfg.Cache.Backend),
		zap.String("health", fmt.Sprintf("http://%s/health", addr)),
		zap.String("tiles", fmt.Sprintf("http://%s/api/v1/tiles/{z}/{x}/{y}.png", addr)),
	)

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildMosaic opens every configured source.
func buildMosaic(cfg *config.Config) (*mosaic.Mosaic, error) {
	p, err := config.ProjectionFor(cfg.Projection)
	if err != nil {
		return nil, err
	}

	driver := raster.NewMemory()
	m := mosaic.New(driver, mosaic.WithProjection(p), mosaic.WithLogger(log))
	for _, src := range cfg.Sources {
		bound, err := config.ParseExtent(src.Extent, p)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		e, err := extract.Open(driver, src.Path, bound,
			extract.WithNoData(src.NoData),
			extract.WithLogger(log.With(zap.String("source", src.Name))),
		)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		m.Add(src.Name, e)
	}
	return m, nil
}

// openCatalog returns the configured store, or nil for backend none. The
// returned func releases it.
func openCatalog(ctx context.Context, cfg config.Cache) (catalog.Store, func(), error) {
	switch cfg.Backend {
	case "memory":
		return catalog.NewMemory(), func() {}, nil
	case "valkey":
		c, err := catalog.NewValkey(cfg.Address, cfg.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect valkey: %w", err)
		}
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("ping valkey at %s: %w", cfg.Address, err)
		}
		return c, c.Close, nil
	}
	return nil, func() {}, nil
}
