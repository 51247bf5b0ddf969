package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saurabh1e/pos-api/internal/app"
	"github.com/saurabh1e/pos-api/internal/config"
	"github.com/saurabh1e/pos-api/internal/logger"
	"github.com/saurabh1e/pos-api/internal/web/server"
)

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides configuration)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  "Load configuration, connect to the database and serve the REST API until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		log, err := logger.New(logger.Config{
			Level:       cfg.Log.Level,
			Development: cfg.Log.Development,
		})
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer log.Sync()

		application, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}

		serverCfg := server.DefaultConfig()
		serverCfg.Address = cfg.Server.Address()
		srv := server.New(serverCfg, application.Handler(), log)

		return srv.Run(cfg.Server.ShutdownTimeout, func(ctx context.Context) error {
			application.Close()
			return nil
		})
	},
}
