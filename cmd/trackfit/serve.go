package main

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/trackfit-dev/trackfit/internal/api"
	"github.com/trackfit-dev/trackfit/internal/backup"
	"github.com/trackfit-dev/trackfit/internal/config"
	"github.com/trackfit-dev/trackfit/internal/store"
)

func serveCmd() *cobra.Command {
	var configPath string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the trackfit server",
		Long: `Start the HTTP server: REST API, WebSocket realtime channel,
and the /metrics and /healthz endpoints on a single listener.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.Default()
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			st, err := store.Open(ctx, cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			if cfg.Backup.Bucket != "" && cfg.Backup.Interval.Std() > 0 {
				awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
				if err != nil {
					return fmt.Errorf("load aws config: %w", err)
				}
				exporter := backup.NewExporter(st, s3.NewFromConfig(awsCfg),
					cfg.Backup.Bucket, cfg.Backup.Prefix, logger)
				go exporter.Run(ctx, cfg.Backup.Interval.Std())
			}

			return api.New(cfg, st, logger).Run()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trackfit.json", "Path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	return cmd
}
