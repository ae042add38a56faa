// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package cache stores encoded page frames so that revisiting a page at a
// scale already rendered skips rasterization.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrMiss is returned by Get when no frame is stored under the key.
var ErrMiss = errors.New("cache miss")

// FrameCache is a store of encoded frames keyed by Key.
type FrameCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, frame []byte) error
}

// Key identifies a frame by document digest, 1-based page number and scale.
// The scale uses the shortest exact formatting, so two keys are equal only
// when the scales are.
func Key(digest string, page int, scale float64) string {
	return fmt.Sprintf("%s/%d/%s", digest, page, strconv.FormatFloat(scale, 'g', -1, 64))
}

// Memory is an in-process LRU FrameCache bounded by entry count.
type Memory struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[string]*list.Element
}

type entry struct {
	key   string
	frame []byte
}

// NewMemory returns a Memory cache holding at most max frames. A max below
// 1 is treated as 1.
func NewMemory(max int) *Memory {
	if max < 1 {
		max = 1
	}
	return &Memory{
		max:   max,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	m.order.MoveToFront(el)
	return el.Value.(*entry).frame, nil
}

func (m *Memory) Set(_ context.Context, key string, frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		el.Value.(*entry).frame = frame
		m.order.MoveToFront(el)
		return nil
	}
	m.items[key] = m.order.PushFront(&entry{key, frame})
	for m.order.Len() > m.max {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*entry).key)
	}
	return nil
}

// Len returns the number of frames held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
