package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/talkincode/shopsync/internal/adminapi"
	"github.com/talkincode/shopsync/internal/app"
	"github.com/talkincode/shopsync/internal/webserver"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog API server",
	RunE:  serveFunc,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func serveFunc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		return err
	}
	defer application.Release()
	if err := application.MigrateDB(cfg.Database.Debug); err != nil {
		zap.S().Errorf("migrate database: %s", err.Error())
	}

	adminapi.Init()
	server := webserver.NewWebServer(cfg, application)

	errc := make(chan error, 1)
	go func() {
		zap.S().Infof("shopsync %s listening on %s", BuildVersion, server.Addr())
		errc <- server.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case s := <-sig:
		zap.S().Infof("received %s, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
