package main

import (
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/trackfit-dev/trackfit/internal/backup"
	"github.com/trackfit-dev/trackfit/internal/config"
	"github.com/trackfit-dev/trackfit/internal/store"
)

func backupCmd() *cobra.Command {
	var configPath string
	var out string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Take a one-off snapshot of the database",
		Long: `Serialize all tracking data to a JSON snapshot and upload it to
the configured S3 bucket, or write it to a local file with --out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger := slog.Default()
			ctx := cmd.Context()

			st, err := store.Open(ctx, cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			if out != "" {
				exporter := backup.NewExporter(st, nil, "", "", logger)
				data, err := exporter.Snapshot(ctx)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}
				fmt.Printf("Snapshot written to %s (%d bytes)\n", out, len(data))
				return nil
			}

			if cfg.Backup.Bucket == "" {
				return fmt.Errorf("no backup bucket configured and no --out given")
			}
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return fmt.Errorf("load aws config: %w", err)
			}
			exporter := backup.NewExporter(st, s3.NewFromConfig(awsCfg),
				cfg.Backup.Bucket, cfg.Backup.Prefix, logger)
			key, err := exporter.Upload(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Snapshot uploaded to s3://%s/%s\n", cfg.Backup.Bucket, key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trackfit.json", "Path to config file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the snapshot to a local file instead of S3")

	return cmd
}
