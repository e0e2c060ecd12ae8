package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/app"
	"go.uber.org/zap"
)

var (
	BuildVersion = "develop"
	BuildTime    = "unknown"
)

var globalFlags struct {
	ConfigFile string
}

// RootCmd is the shopsync entry point.
var RootCmd = &cobra.Command{
	Use:           "shopsync",
	Short:         "Storefront catalog with versioned diff synchronization",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "config file (yaml)")
}

func loadConfig() (*config.AppConfig, error) {
	return config.LoadConfig(globalFlags.ConfigFile)
}

// setupClientLogger configures logging for the client commands, which never write log
// files.
func setupClientLogger(cfg *config.AppConfig) {
	logCfg := cfg.Logger
	logCfg.FileEnable = false
	app.InitLogger(logCfg)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		zap.S().Error(err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
