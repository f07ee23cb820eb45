// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web serves the session to a browser: a JSON API for polling and
// a websocket that streams snapshots and accepts player commands.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gesture_engine/internal/gesture"
	"github.com/relabs-tech/gesture_engine/internal/inventory"
	"github.com/relabs-tech/gesture_engine/internal/profile"
	"github.com/relabs-tech/gesture_engine/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is a command from the browser.
type WSMessage struct {
	Action string `json:"action"` // enter, leave, animation_complete, collect
	Mode   string `json:"mode,omitempty"`
}

// WSResponse is pushed to every connected browser.
type WSResponse struct {
	Type     string            `json:"type"` // snapshot, event, ack, error
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Event    *gesture.Event    `json:"event,omitempty"`
	Action   string            `json:"action,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// Ledger is the read side of the pack inventory.
type Ledger interface {
	Count(ctx context.Context) (int, error)
	History(ctx context.Context, limit int) ([]inventory.Entry, error)
}

// ProfileFunc resolves a mode name to a full profile, overrides applied.
type ProfileFunc func(profile.Mode) (profile.Profile, error)

// Server wires a session host to HTTP.
type Server struct {
	host     *session.Host
	ledger   Ledger
	profiles ProfileFunc
	static   string
	log      *slog.Logger
	hub      *hub
	mux      *http.ServeMux
}

// NewServer registers itself as an observer on host. ledger may be nil;
// static may be empty to serve no files.
func NewServer(host *session.Host, ledger Ledger, profiles ProfileFunc, static string, logger *slog.Logger) *Server {
	s := &Server{
		host:     host,
		ledger:   ledger,
		profiles: profiles,
		static:   static,
		log:      logger,
		hub:      newHub(),
		mux:      http.NewServeMux(),
	}
	host.Observe(func(snap session.Snapshot) {
		s.hub.broadcast(WSResponse{Type: "snapshot", Snapshot: &snap})
	})
	host.OnEvent(func(ev gesture.Event) {
		s.hub.broadcast(WSResponse{Type: "event", Event: &ev})
	})

	s.mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/modes", s.handleModes)
	s.mux.HandleFunc("GET /api/inventory", s.handleInventory)
	s.mux.HandleFunc("/ws", s.handleWS)
	if static != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(static)))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("web server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("json encode error", "error", err)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	cur := s.host.Current()
	if cur == nil {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.log, cur.Snapshot())
}

func (s *Server) handleModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.log, profile.Modes())
}

type inventoryResponse struct {
	Packs   int               `json:"packs"`
	History []inventory.Entry `json:"history"`
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "inventory disabled", http.StatusNotFound)
		return
	}
	n, err := s.ledger.Count(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h, err := s.ledger.History(r.Context(), 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.log, inventoryResponse{Packs: n, History: h})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan WSResponse, sendBacklog)}
	go c.writeLoop()
	s.hub.add(c)
	defer s.hub.remove(c)

	if cur := s.host.Current(); cur != nil {
		snap := cur.Snapshot()
		c.send <- WSResponse{Type: "snapshot", Snapshot: &snap}
	}

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read error", "error", err)
			}
			return
		}
		reply := s.command(r.Context(), msg)
		select {
		case c.send <- reply:
		default:
		}
	}
}

// command applies one browser command and returns the reply.
func (s *Server) command(ctx context.Context, msg WSMessage) WSResponse {
	fail := func(err error) WSResponse {
		return WSResponse{Type: "error", Action: msg.Action, Message: err.Error()}
	}

	switch msg.Action {
	case "enter":
		mode, err := profile.ParseMode(msg.Mode)
		if err != nil {
			return fail(err)
		}
		p, err := s.profiles(mode)
		if err != nil {
			return fail(err)
		}
		// the session outlives this request
		if _, err := s.host.Enter(context.WithoutCancel(ctx), p); err != nil {
			return fail(err)
		}
	case "leave":
		s.host.Leave()
	case "animation_complete", "collect":
		cur := s.host.Current()
		if cur == nil {
			return fail(session.ErrClosed)
		}
		var err error
		if msg.Action == "collect" {
			err = cur.Collect()
		} else {
			err = cur.AnimationComplete()
		}
		if err != nil {
			return fail(err)
		}
	default:
		return WSResponse{Type: "error", Action: msg.Action, Message: "unknown action"}
	}
	return WSResponse{Type: "ack", Action: msg.Action}
}
