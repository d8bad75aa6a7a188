package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kmit-fdms/fdms/config"
	"github.com/kmit-fdms/fdms/internal/logger"
	"github.com/kmit-fdms/fdms/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. Usage:

	fdms serve
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		log := logger.New(cfg.LogLevel)
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("failed to start server")
		}

		if err := srv.Run(ctx); err != nil {
			log.WithError(err).Fatal("server error")
		}
		log.Info("server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
