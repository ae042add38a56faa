// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sassoftware/viya-pdf-viewer/logger"
	"github.com/sassoftware/viya-pdf-viewer/tracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.c)
	ctx := context.Background()

	steps := []struct {
		ev    Event
		page  int
		scale float64
	}{
		{Event{Trigger: TriggerLoad, DocumentID: "five"}, 1, 1.25},
		{Event{Trigger: TriggerNext}, 2, 1.25},
		{Event{Trigger: TriggerNext}, 3, 1.25},
		{Event{Trigger: TriggerPrevious}, 2, 1.25},
		{Event{Trigger: TriggerZoomIn}, 2, 1.4375},
		{Event{Trigger: TriggerZoomOut}, 2, 1.25},
		{Event{Trigger: TriggerResize, Width: 612}, 2, 1},
		{Event{Trigger: TriggerFit}, 2, 1},
	}
	for _, s := range steps {
		require.NoError(t, d.Dispatch(ctx, s.ev), s.ev.Trigger)
		st := f.c.State()
		assert.Equal(t, s.page, st.CurrentPage, s.ev.Trigger)
		assert.InDelta(t, s.scale, st.Scale, 1e-9, s.ev.Trigger)
	}
}

func TestDispatchErrors(t *testing.T) {
	var mu sync.Mutex
	var errs []string
	logger.SetLogger(func(level logger.LogLevel, msg string, keyvals ...interface{}) {
		if level == logger.ErrorLevel {
			mu.Lock()
			errs = append(errs, msg)
			mu.Unlock()
		}
	})
	t.Cleanup(func() {
		logger.SetLogger(func(logger.LogLevel, string, ...interface{}) {})
		tracer.Flush(&strings.Builder{})
	})

	f := newFixture(t)
	d := NewDispatcher(f.c)
	ctx := context.Background()

	err := d.Dispatch(ctx, Event{Trigger: "rotate"})
	assert.ErrorIs(t, err, ErrUnknownTrigger)

	err = d.Dispatch(ctx, Event{Trigger: TriggerLoad, DocumentID: "missing"})
	var le *LoadError
	assert.ErrorAs(t, err, &le)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[1], "load failed")
	assert.True(t, strings.HasPrefix(tracer.Messages()[len(tracer.Messages())-1], "error: load failed"))
}
