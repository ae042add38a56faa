// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	viewer "github.com/sassoftware/viya-pdf-viewer"
	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document server",
	Long: `Starts the HTTP server exposing /pdf for uploads and downloads and
/ws/viewer for interactive viewer sessions. Stops gracefully on SIGINT or
SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		logFunc := installLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
		}
		defer st.Close()

		fc, closeCache, err := openCache(ctx, cfg.Cache)
		if err != nil {
			return fmt.Errorf("opening frame cache: %w", err)
		}
		defer closeCache()

		vcfg := cfg.ViewerConfig()
		vcfg.Logger = logFunc
		vcfg.DebugOn = vcfg.DebugOn || verbose
		vcfg.Cache = fc
		proc := viewer.NewProcessor(vcfg)

		logger.Info(fmt.Sprintf("store=%s cache=%t parsing_mode=%s", cfg.Store.Driver, fc != nil, vcfg.ParsingMode))
		srv := server.New(cfg.ServerConfig(), st, vcfg, proc)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
