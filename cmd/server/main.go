package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/fraudring/internal/config"
	"github.com/vanshika/fraudring/internal/graph"
	"github.com/vanshika/fraudring/internal/interaction"
	"github.com/vanshika/fraudring/internal/layout"
	"github.com/vanshika/fraudring/internal/logging"
	"github.com/vanshika/fraudring/internal/server"
	"github.com/vanshika/fraudring/internal/service"
	"github.com/vanshika/fraudring/internal/upstream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config) error {
	analytics, err := upstream.New(upstream.Options{
		BaseURL:       cfg.Upstream.BaseURL,
		Timeout:       cfg.Upstream.Timeout,
		RatePerSecond: cfg.Upstream.RatePerSecond,
		Burst:         cfg.Upstream.Burst,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create analytics client: %w", err)
	}

	style, err := interaction.LoadStyle(cfg.StyleFile)
	if err != nil {
		// LoadStyle falls back to the default style
		logger.Warn("invalid style file, using defaults", "path", cfg.StyleFile, "error", err)
	}

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create graph client: %w", err)
	}
	if graphClient != nil {
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
	}

	layoutCfg := layoutConfig(cfg.Layout)
	gateway := service.NewGateway(analytics, service.GatewayOptions{
		Layout:  layoutCfg,
		Workers: cfg.Layout.Workers,
		Logger:  logger,
	})
	origins := cfg.HTTP.AllowedOrigins()
	stream := server.NewStreamHandler(logger, server.StreamOptions{
		Layout:         layoutCfg,
		Style:          style,
		AllowedOrigins: origins,
	})

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.GraphHealthService{Client: graphClient},
		API:              server.NewAPIHandlers(logger, gateway),
		Stream:           stream,
		AllowedOrigins:   origins,
		AllowCredentials: true,
	})
	srv := server.New(logger, cfg.HTTP, router)

	logger.Info("fronting analytics service", "url", analytics.BaseURL(), "graph", graphClient != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		// websocket sessions are hijacked and not tracked by the http server
		stream.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildGraphClient connects to the ring store when GRAPH_URI is set. The
// gateway runs without one.
func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, nil
	}
	return graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
}

func layoutConfig(c config.LayoutConfig) layout.Config {
	return layout.Config{
		Width:    c.Width,
		Height:   c.Height,
		MaxTicks: c.MaxTicks,
		Epsilon:  c.Epsilon,
		Seed:     c.Seed,
	}
}
