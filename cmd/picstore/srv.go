package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"picstore/internal/config"
	"picstore/internal/server"
	"picstore/internal/store"
	"picstore/internal/upload"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the picstore API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			placeholder, err := server.LoadPlaceholder(cfg.Images.PlaceholderPath)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.New(addr, st, upload.NewStager(cfg.Images.ScratchDir), placeholder, logger)
			srv.Configure(serverOptions(cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}

func serverOptions(cfg *config.Config) server.Options {
	return server.Options{
		MaxUploadBytes:     cfg.Images.MaxUploadBytes,
		MultipartMaxMemory: cfg.Images.MultipartMaxMemory,
		AcceptedMediaTypes: cfg.Images.AcceptedMediaTypes,
		SessionTTL:         cfg.SessionTTL(),
		RegisterPath:       cfg.Session.RegisterPath,
		SettingsPath:       cfg.Session.SettingsPath,
	}
}
