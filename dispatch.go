// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sassoftware/viya-pdf-viewer/logger"
)

// Trigger names a user or environment event.
type Trigger string

const (
	TriggerLoad     Trigger = "load"
	TriggerPrevious Trigger = "previous"
	TriggerNext     Trigger = "next"
	TriggerZoomIn   Trigger = "zoom-in"
	TriggerZoomOut  Trigger = "zoom-out"
	TriggerFit      Trigger = "fit-width"
	TriggerResize   Trigger = "resize"
)

// Event is a trigger with its parameters. DocumentID is used by load and
// Width by resize.
type Event struct {
	Trigger    Trigger `json:"type"`
	DocumentID string  `json:"id,omitempty"`
	Width      int     `json:"width,omitempty"`
}

// Dispatcher maps events onto controller calls.
type Dispatcher struct {
	c *Controller
}

// NewDispatcher returns a dispatcher for c.
func NewDispatcher(c *Controller) *Dispatcher {
	return &Dispatcher{c: c}
}

// Dispatch runs the controller operation for ev. Errors are logged and
// returned, except ErrSuperseded which means a newer event already owns
// the view.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	var err error
	switch ev.Trigger {
	case TriggerLoad:
		err = d.c.Load(ctx, ev.DocumentID)
	case TriggerPrevious:
		err = d.c.Previous(ctx)
	case TriggerNext:
		err = d.c.Next(ctx)
	case TriggerZoomIn:
		err = d.c.ZoomIn(ctx)
	case TriggerZoomOut:
		err = d.c.ZoomOut(ctx)
	case TriggerFit:
		err = d.c.FitToWidth(ctx)
	case TriggerResize:
		err = d.c.Resize(ctx, ev.Width)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownTrigger, ev.Trigger)
	}

	if errors.Is(err, ErrSuperseded) {
		logger.Debug("event superseded", "trigger", ev.Trigger)
		return nil
	}
	if err != nil {
		logger.Error(fmt.Sprintf("%s failed: %v", ev.Trigger, err))
	}
	return err
}
