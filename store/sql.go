// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sqlStore holds the queries shared by both databases. Queries are written
// with ? placeholders and rewritten for drivers that number them.
type sqlStore struct {
	db       *sql.DB
	numbered bool
	now      func() time.Time
}

func (s *sqlStore) rebind(q string) string {
	if !s.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

const infoColumns = `id, title, page_count, size, created_at, updated_at`

func (s *sqlStore) Put(ctx context.Context, title string, data []byte, pageCount int) (Document, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	d := Document{
		ID:        uuid.NewString(),
		Title:     title,
		PageCount: pageCount,
		Size:      int64(len(data)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (id, title, data, page_count, size, created_at, updated_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, TRUE)`),
		d.ID, d.Title, data, d.PageCount, d.Size, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return d, nil
}

func (s *sqlStore) Get(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+infoColumns+`, data FROM documents WHERE id = ? AND is_active`), id)
	var d Document
	var created, updated int64
	err := row.Scan(&d.ID, &d.Title, &d.PageCount, &d.Size, &created, &updated, &d.Data)
	if err != nil {
		return Document{}, s.notFound(err, id)
	}
	d.CreatedAt, d.UpdatedAt = time.UnixMilli(created).UTC(), time.UnixMilli(updated).UTC()
	return d, nil
}

func (s *sqlStore) Info(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+infoColumns+` FROM documents WHERE id = ? AND is_active`), id)
	d, err := scanInfo(row)
	if err != nil {
		return Document{}, s.notFound(err, id)
	}
	return d, nil
}

func (s *sqlStore) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+infoColumns+` FROM documents WHERE is_active ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE documents SET is_active = FALSE, updated_at = ? WHERE id = ? AND is_active`),
		s.now().UTC().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) notFound(err error, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("document %s: %w", id, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(row scanner) (Document, error) {
	var d Document
	var created, updated int64
	if err := row.Scan(&d.ID, &d.Title, &d.PageCount, &d.Size, &created, &updated); err != nil {
		return Document{}, err
	}
	d.CreatedAt, d.UpdatedAt = time.UnixMilli(created).UTC(), time.UnixMilli(updated).UTC()
	return d, nil
}
