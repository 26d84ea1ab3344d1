package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/adrift/pkg/adrift"
	"github.com/himanishpuri/adrift/pkg/adrift/metrics"
	"github.com/himanishpuri/adrift/pkg/config"
	"github.com/himanishpuri/adrift/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var bind string
	var origins string

	cmd := &cobra.Command{
		Use:           "adrift-server",
		Short:         "Serve the ADrift fingerprint database and scan API over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(configPath))
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if err := cfg.ApplyLogging(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			obs := metrics.New(reg)

			svcLog := logger.GetLogger().With("adrift")
			opts := append(cfg.ServiceOptions(),
				adrift.WithLogger(svcLog),
				adrift.WithObserver(adrift.MultiObserver{obs, adrift.LogObserver{Log: svcLog}}),
			)
			svc, err := adrift.NewService(opts...)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			server := NewServer(svc, &ServerConfig{
				Bind:           cfg.Server.Bind,
				DBPath:         cfg.DatabasePath(),
				AllowedOrigins: parseOrigins(origins),
			}, obs, reg)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	cmd.Flags().StringVar(&origins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	return cmd
}

func parseOrigins(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" || value == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(value, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
