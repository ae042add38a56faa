// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	viewer "github.com/sassoftware/viya-pdf-viewer"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	source string
	dir    string
	scale  float64
}

var exportOpts exportOptions

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Render every page of a served document to PNG files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		installLogger(cfg)
		return runExport(cmd.Context(), cfg.ViewerConfig(), args[0], exportOpts, os.Stderr)
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.source, "source", "http://localhost:8080", "base URL of the document server")
	f.StringVar(&exportOpts.dir, "dir", "pages", "output directory")
	f.Float64Var(&exportOpts.scale, "scale", 1, "render scale")
	rootCmd.AddCommand(exportCmd)
}

// runExport writes page-NNN.png for every page it can render. Pages that
// fail are reported and counted; the export fails if any did.
func runExport(ctx context.Context, vcfg *viewer.Config, id string, opts exportOptions, progress io.Writer) error {
	data, err := viewer.NewHTTPSource(opts.source, vcfg).Fetch(ctx, id)
	if err != nil {
		return &viewer.LoadError{ID: id, Err: err}
	}
	proc := viewer.NewProcessor(vcfg)
	doc, err := proc.Parse(ctx, data)
	if err != nil {
		return &viewer.LoadError{ID: id, Err: err}
	}
	if doc.PageCount() == 0 {
		return viewer.ErrNoPages
	}
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return err
	}

	bar := progressbar.NewOptions(doc.PageCount(),
		progressbar.OptionSetDescription("Rendering pages"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionClearOnFinish(),
	)

	written, failed := 0, 0
	for res := range proc.Export(ctx, doc, opts.scale) {
		bar.Add(1)
		if res.Err != nil {
			failed++
			fmt.Fprintf(progress, "\npage %d: %v\n", res.Page, res.Err)
			continue
		}
		path := filepath.Join(opts.dir, fmt.Sprintf("page-%03d.png", res.Page))
		if err := writePNG(path, res.Image); err != nil {
			return err
		}
		written++
	}
	bar.Finish()

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed", failed, doc.PageCount())
	}
	if written != doc.PageCount() {
		return fmt.Errorf("rendered %d of %d pages", written, doc.PageCount())
	}
	return nil
}
