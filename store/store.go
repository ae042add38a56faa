// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package store keeps uploaded PDF documents for the document endpoint.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no active document has the requested id.
var ErrNotFound = errors.New("document not found")

// Document is a stored PDF. Data is empty for results of Info and List.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Data      []byte    `json:"-"`
	PageCount int       `json:"page_count"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ETag returns a strong entity tag that changes whenever the document does.
func (d Document) ETag() string {
	return fmt.Sprintf(`"%s-%d"`, d.ID, d.UpdatedAt.UnixMilli())
}

// Store is implemented by SQLite and Postgres.
type Store interface {
	// Put stores a new document and returns it without its data.
	Put(ctx context.Context, title string, data []byte, pageCount int) (Document, error)
	// Get returns the document including its data.
	Get(ctx context.Context, id string) (Document, error)
	// Info returns the document without its data.
	Info(ctx context.Context, id string) (Document, error)
	// List returns all active documents, newest first, without data.
	List(ctx context.Context) ([]Document, error)
	// Delete marks the document inactive.
	Delete(ctx context.Context, id string) error
	Close() error
}
