// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"io"

	viewer "github.com/sassoftware/viya-pdf-viewer"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	source   string
	page     int
	scale    float64
	fitWidth int
	out      string
}

var renderOpts renderOptions

var renderCmd = &cobra.Command{
	Use:   "render <id>",
	Short: "Render one page of a served document to PNG",
	Long: `Fetches the document from a running server, renders one page and
writes it as a PNG. With --fit-width the page is scaled to that many pixels
wide; otherwise --scale (or the configured initial scale) is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		installLogger(cfg)
		return runRender(cmd.Context(), cfg.ViewerConfig(), args[0], renderOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderOpts.source, "source", "http://localhost:8080", "base URL of the document server")
	f.IntVar(&renderOpts.page, "page", 1, "page number, starting at 1")
	f.Float64Var(&renderOpts.scale, "scale", 0, "render scale (default: viewer.initial_scale)")
	f.IntVar(&renderOpts.fitWidth, "fit-width", 0, "fit the page to this width in pixels")
	f.StringVarP(&renderOpts.out, "out", "o", "page.png", "output PNG path")
	rootCmd.AddCommand(renderCmd)
}

// runRender drives a controller the way a viewer would: set the container
// width, load, then move to the requested page.
func runRender(ctx context.Context, vcfg *viewer.Config, id string, opts renderOptions, w io.Writer) error {
	if opts.scale > 0 {
		vcfg.InitialScale = opts.scale
	}
	surface := &viewer.ImageSurface{}
	c, err := viewer.New(vcfg, viewer.NewHTTPSource(opts.source, vcfg), viewer.NewProcessor(vcfg), surface)
	if err != nil {
		return err
	}
	if opts.fitWidth > 0 {
		if err := c.Resize(ctx, opts.fitWidth); err != nil {
			return err
		}
	}
	if err := c.Load(ctx, id); err != nil {
		return err
	}
	if opts.page != 1 {
		if err := c.RenderPage(ctx, opts.page, opts.fitWidth > 0); err != nil {
			return err
		}
	}

	fr, ok := surface.Frame()
	if !ok {
		return fmt.Errorf("no page rendered")
	}
	if err := writePNG(opts.out, fr.Image); err != nil {
		return err
	}
	b := fr.Image.Bounds()
	fmt.Fprintf(w, "%s: page %s at scale %.3f (%dx%d)\n", opts.out, fr.Label(), fr.Scale, b.Dx(), b.Dy())
	return nil
}
