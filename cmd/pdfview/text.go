// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	viewer "github.com/sassoftware/viya-pdf-viewer"
	"github.com/spf13/cobra"
)

type textOptions struct {
	source string
	json   bool
}

var textOpts textOptions

var textCmd = &cobra.Command{
	Use:   "text <id>",
	Short: "Print the positioned text blocks of a served document",
	Long: `Fetches the document from a running server and prints its text one
block at a time with the block position in page points. With --json the
blocks are printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		installLogger(cfg)
		return runText(cmd.Context(), cfg.ViewerConfig(), args[0], textOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := textCmd.Flags()
	f.StringVar(&textOpts.source, "source", "http://localhost:8080", "base URL of the document server")
	f.BoolVar(&textOpts.json, "json", false, "print JSON instead of a text layout")
	rootCmd.AddCommand(textCmd)
}

func runText(ctx context.Context, vcfg *viewer.Config, id string, opts textOptions, w io.Writer) error {
	data, err := viewer.NewHTTPSource(opts.source, vcfg).Fetch(ctx, id)
	if err != nil {
		return &viewer.LoadError{ID: id, Err: err}
	}
	pages, err := viewer.NewProcessor(vcfg).Text(ctx, data)
	if err != nil {
		return &viewer.LoadError{ID: id, Err: err}
	}
	for _, pt := range pages {
		if pt.Err != nil {
			return fmt.Errorf("page %d: %w", pt.Page, pt.Err)
		}
	}
	if !opts.json {
		_, err := io.WriteString(w, viewer.FormatText(pages))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pages)
}
