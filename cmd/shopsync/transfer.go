package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/talkincode/shopsync/internal/catalog"
	"github.com/talkincode/shopsync/internal/syncclient"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Replace the server catalog with a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  importFunc,
}

var exportCmd = &cobra.Command{
	Use:   "export <file.csv|file.xlsx>",
	Short: "Download the server catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  exportFunc,
}

func init() {
	addRemoteFlags(importCmd)
	addRemoteFlags(exportCmd)
	RootCmd.AddCommand(importCmd, exportCmd)
}

func importFunc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupClientLogger(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 10*cfg.Sync.Timeout())
	defer cancel()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	remote, err := newRemote(ctx, cfg)
	if err != nil {
		return err
	}
	engine, err := syncclient.New(remote, syncclient.OptionsFromConfig(cfg.Sync))
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Refresh(ctx); err != nil {
		return err
	}
	report, err := engine.ImportCSV(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d products, skipped %d, version %d\n",
		report.Imported, report.Skipped, report.Version)
	return nil
}

func exportFunc(cmd *cobra.Command, args []string) error {
	write := catalog.WriteCSV
	switch ext := strings.ToLower(filepath.Ext(args[0])); ext {
	case ".xlsx":
		write = catalog.WriteXLSX
	case ".csv", "":
	default:
		return errors.Errorf("unsupported export format %q", ext)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupClientLogger(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout())
	defer cancel()

	remote, err := newRemote(ctx, cfg)
	if err != nil {
		return err
	}
	snap, err := remote.State(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	if err := write(f, snap.Products); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d products at version %d\n", len(snap.Products), snap.Version)
	return nil
}
