// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/cave_tracker/internal/tracking"
)

const (
	clientBuffer = 16
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local status page
	},
}

// StatusServer serves the latest snapshot as JSON on /api/pose and streams
// every snapshot to websocket clients on /ws.
type StatusServer struct {
	latest *tracking.Latest
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool

	srv *http.Server
	ln  net.Listener
}

type wsClient struct {
	conn *websocket.Conn
	send chan tracking.Snapshot
	once sync.Once
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.send) })
}

// NewStatusServer reads snapshots from latest.
func NewStatusServer(latest *tracking.Latest, logger *zap.Logger) *StatusServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StatusServer{
		latest:  latest,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
	return s
}

// Handler returns the HTTP routes.
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pose", s.handlePose)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *StatusServer) handlePose(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest.Load()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Warn("web: json encode error", zap.Error(err))
	}
}

func (s *StatusServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("web: websocket upgrade error", zap.Error(err))
		return
	}
	c := &wsClient{conn: conn, send: make(chan tracking.Snapshot, clientBuffer)}
	if snap, ok := s.latest.Load(); ok {
		c.send <- snap
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("web: websocket client connected", zap.String("remote", r.RemoteAddr))

	// the read side only notices the peer going away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(c)
				return
			}
		}
	}()

	for snap := range c.send {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(snap); err != nil {
			s.logger.Debug("web: websocket write error", zap.Error(err))
			s.drop(c)
			break
		}
	}
	conn.Close()
}

func (s *StatusServer) drop(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.stop()
}

// Broadcast queues snap for every websocket client. Slow clients miss
// snapshots rather than holding up the caller.
func (s *StatusServer) Broadcast(snap tracking.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- snap:
		default:
		}
	}
}

// Clients returns the number of connected websocket clients.
func (s *StatusServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Listen binds addr so that a busy port fails before the frame loop starts.
func (s *StatusServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web server on %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("web: server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address, once Listen succeeded.
func (s *StatusServer) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Serve runs until ctx is done, then shuts the server down and disconnects
// websocket clients.
func (s *StatusServer) Serve(ctx context.Context) error {
	if s.srv == nil {
		return errors.New("web: Serve before Listen")
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(s.ln) }()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	return err
}

func (s *StatusServer) close() {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[*wsClient]struct{})
	s.mu.Unlock()
	for c := range clients {
		c.stop()
		c.conn.Close()
	}
}
