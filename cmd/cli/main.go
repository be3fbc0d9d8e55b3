package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/writedesk/internal/buildinfo"
	"github.com/dmitrijs2005/writedesk/internal/client/cli"
	"github.com/dmitrijs2005/writedesk/internal/client/config"
	"github.com/dmitrijs2005/writedesk/internal/client/metrics"
	"github.com/dmitrijs2005/writedesk/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogBackend, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, reg, logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error(ctx, "metrics server", "error", err)
			}
		}()
	}

	app, err := cli.NewApp(ctx, cfg, logger, m)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
