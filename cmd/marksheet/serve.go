package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/ingest"
	"github.com/joseph-ayodele/marksheet-extractor/internal/server"
)

var (
	serveAddr     string
	serveWatchDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health server and the optional watch folder",
	Long: `Start the gRPC health server and keep the dependency statuses fresh.

The standard grpc.health.v1 service reports:
  - marksheet.ocr   - tesseract availability
  - marksheet.llm   - the configured LLM vendor
  - marksheet.store - the run store ("disabled" when no database is set)
  - ""              - overall status

With --watch (or server.watch_dir) new files dropped into the folder are
extracted by the worker pool and recorded in the store.

Examples:
  marksheet serve
  marksheet serve --addr :9090 --watch ./inbox`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if serveAddr != "" {
			cfg.Server.GRPCAddr = serveAddr
		}
		if serveWatchDir != "" {
			cfg.Server.WatchDir = serveWatchDir
		}

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		watchConfig()

		srv := server.New(cfg.Server.GRPCAddr, logger)
		if err := srv.Listen(); err != nil {
			return err
		}
		mon := server.NewHealthMonitor(srv.Health, logger, cfg.Server.HealthInterval, version, a.probes()...)
		go mon.Run(ctx)

		q := a.queue()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			q.Shutdown(sctx)
		}()

		if dir := cfg.Server.WatchDir; dir != "" {
			ing := ingest.NewFSIngestor(q, a.validator, cfg.Upload.AllowedExtensions, logger)
			wc := ingest.WatchConfig{
				Roots:       []string{dir},
				AllowedExts: ingest.ExtSet(cfg.Upload.AllowedExtensions),
				InitialScan: true,
				Debounce:    500 * time.Millisecond,
			}
			go func() {
				if err := ingest.Watch(ctx, ing, wc, logger); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("watch stopped", "dir", dir, "error", err)
				}
			}()
		}

		logger.Info("serve.started", "addr", srv.Addr(), "watch_dir", cfg.Server.WatchDir, "version", version)
		return srv.Serve(ctx)
	},
}

// watchConfig applies log level changes from the config file while serving.
func watchConfig() {
	m, err := common.NewManager(cfgFile)
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
		return
	}
	if m.ConfigFileUsed() == "" {
		return
	}
	m.OnChange(func(c *common.Config) {
		if logLevel == "" {
			levelVar.Set(common.ParseLevel(c.Log.Level))
		}
		logger.Info("config.reloaded", "file", m.ConfigFileUsed(), "log_level", levelVar.Level().String())
	})
	m.WatchConfig()
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "gRPC listen address (default: server.grpc_addr)")
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "folder to watch for new marksheets (default: server.watch_dir)")
}
