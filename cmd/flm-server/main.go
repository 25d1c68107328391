// Command flm-server exposes an in-process bridge over ZeroMQ and serves its
// metrics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/VanDung-dev/flm-bridge/bridge"
	"github.com/VanDung-dev/flm-bridge/catalog"
	"github.com/VanDung-dev/flm-bridge/config"
	"github.com/VanDung-dev/flm-bridge/metrics"
	"github.com/VanDung-dev/flm-bridge/remote"
)

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	address := flag.String("addr", "", "ZeroMQ listen address, overrides remote.address")
	metricsAddr := flag.String("metrics", "", "Metrics listen address, overrides remote.metrics_address")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "flm-server: %v\n", err)
			os.Exit(1)
		}
	}
	if *address != "" {
		cfg.Remote.Address = *address
	}
	if *metricsAddr != "" {
		cfg.Remote.MetricsAddress = *metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "flm-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	log := cfg.Logger("flm-server")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	b := bridge.New(catalog.Factory(catalog.WithLogger(log)),
		bridge.WithLogger(log),
		bridge.WithRegisterer(reg),
	)
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn().Err(err).Msg("closing live instances")
		}
	}()

	srv := remote.NewServer(b, cfg.Remote.Address,
		remote.WithServerLogger(log),
		remote.WithServerMetrics(b.Metrics()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx)
	})

	if cfg.Remote.MetricsAddress != "" {
		ms := metrics.NewServer(cfg.Remote.MetricsAddress, reg)
		g.Go(func() error {
			log.Info().Str("addr", cfg.Remote.MetricsAddress).Msg("metrics server started")
			return ms.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			return ms.Stop()
		})
	}

	log.Info().Str("addr", cfg.Remote.Address).Msg("flm-server running")
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info().Int("live_handles", b.LiveHandles()).Msg("flm-server stopped")
	return err
}
