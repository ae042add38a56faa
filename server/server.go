// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package server serves stored documents over HTTP and hosts websocket
// viewer sessions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	viewer "github.com/sassoftware/viya-pdf-viewer"
	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/store"
	"golang.org/x/sync/errgroup"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	// AllowedOrigins for CORS; empty allows local development origins.
	AllowedOrigins []string
	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxUploadBytes:  10 << 20,
		RequestTimeout:  60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the document endpoint plus viewer sessions.
type Server struct {
	cfg    Config
	store  store.Store
	viewer *viewer.Config
	proc   *viewer.Processor
	router chi.Router
}

// New creates a server for documents in st. Viewer sessions render with
// proc using vcfg.
func New(cfg Config, st store.Store, vcfg *viewer.Config, proc *viewer.Processor) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		viewer: vcfg,
		proc:   proc,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		corsOpts.AllowedOrigins = s.cfg.AllowedOrigins
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// the websocket outlives the request timeout
	r.Get("/ws/viewer", s.handleViewer)

	r.Group(func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		s.registerDocumentRoutes(r)
	})
	return r
}

// requestLogger logs each request through the logger package.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(fmt.Sprintf("pdf viewer server listening on %s", ln.Addr()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
