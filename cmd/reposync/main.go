// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"go.reposync.dev/reposync/internal/pkg/cache"
	"go.reposync.dev/reposync/internal/pkg/config"
	"go.reposync.dev/reposync/internal/pkg/driver"
	"go.reposync.dev/reposync/internal/pkg/metrics"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
	"go.reposync.dev/reposync/pkg/sighandler"
)

var (
	checkHash   bool
	configPath  string
	metricsAddr string

	rootCmd = &cobra.Command{
		Use:   "reposync",
		Short: "Synchronize YUM repositories from HTTP mirrors to a local tree.",
		RunE:  run,
	}
)

func init() {
	rootCmd.Flags().BoolVarP(&checkHash, "check", "c", false, "verify content checksums, not just sizes")
	rootCmd.Flags().StringVarP(&configPath, "config", "C", "reposync.toml", "path to the TOML configuration file")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address while syncing")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.Logger(nil)
	if err != nil {
		return fmt.Errorf("%w: %w", reposyncerr.ErrConfig, err)
	}

	errCh := make(chan error, 1)
	ctx, wait := sighandler.New(errCh, os.Interrupt, syscall.SIGTERM)

	m := metrics.New()
	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr, m); err != nil {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
	}

	mode := cache.RemoteSize
	if checkHash {
		mode = cache.Hash
	}

	go func() {
		errCh <- driver.Run(ctx, logger, m, cfg, mode)
	}()

	return wait(true)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("reposync failed", "err", err)
		os.Exit(1)
	}
}
