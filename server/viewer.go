// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	viewer "github.com/sassoftware/viya-pdf-viewer"
	"github.com/sassoftware/viya-pdf-viewer/logger"
)

// maxMessageBytes bounds a single client message.
const maxMessageBytes = 4 << 10

// maxInFlight is the number of events a session runs at once: the newest
// one and the one it is superseding.
const maxInFlight = 2

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 << 10,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// sessionMessage is sent from server to client.
type sessionMessage struct {
	Type    string  `json:"type"`
	Session string  `json:"session,omitempty"`
	Status  string  `json:"status,omitempty"`
	ID      string  `json:"id,omitempty"`
	Page    int     `json:"page,omitempty"`
	Total   int     `json:"total,omitempty"`
	Scale   float64 `json:"scale,omitempty"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
	Label   string  `json:"label,omitempty"`
	PNG     string  `json:"png,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	Message string  `json:"message,omitempty"`
}

// session is one websocket client driving its own controller.
type session struct {
	id      string
	conn    *websocket.Conn
	surface *viewer.ImageSurface
	disp    *viewer.Dispatcher
	ctrl    *viewer.Controller

	writeMu  sync.Mutex
	lastSent int
}

// eventQueue runs at most maxInFlight events concurrently. While all slots
// are busy the newest event waits in a single pending slot, replacing any
// event already waiting there.
type eventQueue struct {
	run func(context.Context, viewer.Event)
	wg  sync.WaitGroup

	mu      sync.Mutex
	running int
	pending *viewer.Event
}

// submit starts ev or parks it in the pending slot. It reports whether a
// previously pending event was dropped.
func (q *eventQueue) submit(ctx context.Context, ev viewer.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running >= maxInFlight {
		replaced := q.pending != nil
		q.pending = &ev
		return replaced
	}
	q.running++
	q.wg.Add(1)
	go q.loop(ctx, ev)
	return false
}

func (q *eventQueue) loop(ctx context.Context, ev viewer.Event) {
	defer q.wg.Done()
	for {
		q.run(ctx, ev)

		q.mu.Lock()
		if q.pending == nil {
			q.running--
			q.mu.Unlock()
			return
		}
		ev = *q.pending
		q.pending = nil
		q.mu.Unlock()
	}
}

// wait blocks until every started event has returned.
func (q *eventQueue) wait() {
	q.wg.Wait()
}

// handleViewer upgrades to a websocket and runs a viewer session. Each
// client message is an event such as {"type":"next"}; the server answers
// with the new frame, the current state or an error.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	sess, err := s.newSession(conn)
	if err != nil {
		conn.WriteJSON(sessionMessage{Type: "error", Kind: "request", Message: err.Error()})
		return
	}
	logger.Debug("viewer session opened", "session", sess.id)
	defer logger.Debug("viewer session closed", "session", sess.id)

	ctx, cancel := context.WithCancel(context.Background())
	queue := &eventQueue{run: sess.handle}
	defer func() {
		cancel()
		queue.wait()
	}()

	sess.send(sess.stateMessage())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", "session", sess.id, "err", err)
			}
			return
		}

		var ev viewer.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			if !sess.send(sessionMessage{Type: "error", Kind: "request", Message: fmt.Sprintf("invalid message: %v", err)}) {
				return
			}
			continue
		}

		// a newer event supersedes a slow render, so two may run at once
		if queue.submit(ctx, ev) {
			logger.Debug("pending viewer event replaced", "session", sess.id, "by", ev.Trigger)
		}
	}
}

func (s *Server) newSession(conn *websocket.Conn) (*session, error) {
	vcfg := s.viewer
	if vcfg == nil {
		vcfg = viewer.NewDefaultConfig()
	}
	src := viewer.SourceFunc(func(ctx context.Context, id string) ([]byte, error) {
		doc, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return doc.Data, nil
	})
	surface := &viewer.ImageSurface{}
	ctrl, err := viewer.New(vcfg, src, s.proc, surface)
	if err != nil {
		return nil, err
	}
	return &session{
		id:      uuid.NewString(),
		conn:    conn,
		surface: surface,
		disp:    viewer.NewDispatcher(ctrl),
		ctrl:    ctrl,
	}, nil
}

func (sess *session) handle(ctx context.Context, ev viewer.Event) {
	defer func() {
		if e := recover(); e != nil {
			logger.Error("viewer event panicked", "session", sess.id, "trigger", ev.Trigger, "panic", e)
			sess.send(sessionMessage{Type: "error", Kind: "internal", Message: fmt.Sprintf("%s failed: %v", ev.Trigger, e)})
		}
	}()
	err := sess.disp.Dispatch(ctx, ev)
	if err != nil {
		sess.send(errorMessage(err))
		return
	}
	if msg, ok := sess.frameMessage(); ok {
		sess.send(msg)
		return
	}
	sess.send(sess.stateMessage())
}

func errorMessage(err error) sessionMessage {
	kind := "request"
	var le *viewer.LoadError
	var re *viewer.RenderError
	switch {
	case errors.As(err, &le):
		kind = "load"
	case errors.As(err, &re):
		kind = "render"
	}
	return sessionMessage{Type: "error", Kind: kind, Message: err.Error()}
}

func (sess *session) stateMessage() sessionMessage {
	st := sess.ctrl.State()
	return sessionMessage{
		Type:    "state",
		Session: sess.id,
		Status:  st.Status.String(),
		ID:      st.DocumentID,
		Page:    st.CurrentPage,
		Total:   st.TotalPages,
		Scale:   st.Scale,
		Width:   st.OutputWidth,
		Height:  st.OutputHeight,
	}
}

// frameMessage returns the latest presented frame if the client has not
// seen it yet.
func (sess *session) frameMessage() (sessionMessage, bool) {
	sess.writeMu.Lock()
	n := sess.surface.Presents()
	if n == sess.lastSent {
		sess.writeMu.Unlock()
		return sessionMessage{}, false
	}
	sess.lastSent = n
	sess.writeMu.Unlock()

	fr, ok := sess.surface.Frame()
	if !ok {
		return sessionMessage{}, false
	}
	var buf bytes.Buffer
	if err := sess.surface.WritePNG(&buf); err != nil {
		return errorMessage(err), true
	}
	b := fr.Image.Bounds()
	return sessionMessage{
		Type:   "frame",
		ID:     sess.ctrl.State().DocumentID,
		Page:   fr.Page,
		Total:  fr.TotalPages,
		Scale:  fr.Scale,
		Width:  b.Dx(),
		Height: b.Dy(),
		Label:  fr.Label(),
		PNG:    base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, true
}

// send writes msg and reports whether the connection is still usable.
func (sess *session) send(msg sessionMessage) bool {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if err := sess.conn.WriteJSON(msg); err != nil {
		logger.Debug("websocket write failed", "session", sess.id, "err", err)
		return false
	}
	return true
}
