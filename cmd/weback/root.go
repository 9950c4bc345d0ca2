package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"weback-home/config"
	"weback-home/internal/infra/blob"
	"weback-home/internal/infra/credstore"
	"weback-home/internal/infra/weback"
	"weback-home/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "weback",
		Short: "WeBack cloud client and Home Assistant bridge",
		Long: `weback talks to the WeBack vendor cloud: it logs in, caches the session
token, lists the account's devices and polls their status into MQTT,
Home Assistant and InfluxDB.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level: debug, info, warn, error")

	cmd.AddCommand(
		newLoginCmd(opts),
		newDevicesCmd(opts),
		newInfoCmd(opts),
		newRunCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the config file and builds the process logger.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, logging.New(cfg.Log, version), nil
}

func newCredentialStore(cfg *config.Config, logger *slog.Logger) (*credstore.FileStore, error) {
	store := credstore.NewFileStore(cfg.WeBack.CredsFile, logger)
	logger.Debug("credential cache", "path", store.Path())
	if !cfg.Blob.Enabled {
		return store, nil
	}

	mirror, err := blob.NewS3Store(cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("configuring credential mirror: %w", err)
	}
	logger.Info("credential mirror enabled", "endpoint", cfg.Blob.Endpoint, "bucket", cfg.Blob.Bucket)
	return store.WithMirror(mirror), nil
}

func newWeBackClient(cfg *config.Config, logger *slog.Logger) (*weback.Client, error) {
	store, err := newCredentialStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return weback.NewClient(cfg.WeBack, store, logger), nil
}
