// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	viewer "github.com/sassoftware/viya-pdf-viewer"
	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/pdf"
	"github.com/sassoftware/viya-pdf-viewer/store"
)

func (s *Server) registerDocumentRoutes(r chi.Router) {
	r.Route("/pdf", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleUpload)
		r.Get("/{id}", s.handleDocument)
		r.Get("/{id}/info", s.handleInfo)
		r.Get("/{id}/text", s.handleText)
		r.Delete("/{id}", s.handleDelete)
	})
}

type uploadResponse struct {
	OK      bool   `json:"ok"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

type infoResponse struct {
	store.Document
	PDF pdf.Info `json:"pdf"`
}

type textPage struct {
	viewer.PageText
	Error string `json:"error,omitempty"`
}

type textResponse struct {
	ID    string     `json:"id"`
	Pages []textPage `json:"pages"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, uploadResponse{OK: false, Message: msg})
}

// storeError maps a store error onto a response.
func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	logger.Error(fmt.Sprintf("store: %v", err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// etagMatch reports whether an If-None-Match header lists etag.
func etagMatch(header, etag string) bool {
	for _, t := range strings.Split(header, ",") {
		t = strings.TrimSpace(t)
		if t == "*" || strings.TrimPrefix(t, "W/") == etag {
			return true
		}
	}
	return false
}

// handleDocument serves the raw bytes of a document.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.Get(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}

	etag := doc.ETag()
	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "private, max-age=3600")
	h.Set("Last-Modified", doc.UpdatedAt.UTC().Format(http.TimeFormat))
	if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatch(inm, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	name := doc.Title
	if name == "" {
		name = doc.ID
	}
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name+".pdf"))
	h.Set("Content-Length", fmt.Sprint(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}

// handleInfo returns stored and embedded metadata without the bytes.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	info, err := s.proc.Metadata(r.Context(), doc.Data)
	if err != nil {
		logger.Debug("reading stored document metadata", "id", doc.ID, "err", err)
	}
	doc.Data = nil
	writeJSON(w, http.StatusOK, infoResponse{Document: doc, PDF: info})
}

// handleText returns the positioned text blocks of every page, or a plain
// text layout of them with ?format=text.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	pages, err := s.proc.Text(r.Context(), doc.Data)
	if err != nil {
		logger.Debug("extracting text", "id", doc.ID, "err", err)
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("could not read document: %v", err))
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, viewer.FormatText(pages))
		return
	}
	resp := textResponse{ID: doc.ID, Pages: make([]textPage, 0, len(pages))}
	for _, pt := range pages {
		tp := textPage{PageText: pt}
		if pt.Err != nil {
			tp.Error = pt.Err.Error()
		}
		resp.Pages = append(resp.Pages, tp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload stores a multipart "file" upload after checking that it is a
// PDF with at least one page.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultConfig().MaxUploadBytes
	}
	// room for the multipart framing around the file
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(hdr.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF files are allowed")
		return
	}
	if hdr.Size > limit {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", limit))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload")
		return
	}

	doc, err := s.proc.Parse(r.Context(), data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("not a readable PDF: %v", err))
		return
	}
	if doc.PageCount() == 0 {
		writeError(w, http.StatusUnprocessableEntity, "PDF has no pages")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(hdr.Filename), filepath.Ext(hdr.Filename))
	}
	stored, err := s.store.Put(r.Context(), title, data, doc.PageCount())
	if err != nil {
		storeError(w, err)
		return
	}
	logger.Info("document uploaded", "id", stored.ID, "pages", stored.PageCount, "bytes", stored.Size)
	writeJSON(w, http.StatusCreated, uploadResponse{
		OK:      true,
		ID:      stored.ID,
		Message: fmt.Sprintf("uploaded %q (%d pages) at %s", title, stored.PageCount, stored.CreatedAt.Format(time.RFC3339)),
	})
}
