package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"contactdb/pkg/api"
	"contactdb/pkg/config"
	"contactdb/pkg/core"
	"contactdb/pkg/logging"
	"contactdb/pkg/monitor"
	"contactdb/pkg/network"
	"contactdb/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:          "contactdb-server",
		Short:        "Contact store with an in-memory name index, served over HTTP and TCP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: configs/contactdb.yaml or contactdb.yaml)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	if logging.ParseLevel(cfg.Log.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()
	logger.Info("Store opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	stats := monitor.NewWorkloadStats()
	svc := core.NewContactService(store, core.WithLogger(logger), core.WithStats(stats))
	if _, err := svc.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}

	httpSrv := api.NewServer(svc, stats.Handler(), logger)
	tcpSrv := network.NewTCPServer(svc, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpSrv.Run(gctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		return tcpSrv.Start(gctx, cfg.Server.TCPAddr)
	})

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}
