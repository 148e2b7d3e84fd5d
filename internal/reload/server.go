// Package reload pushes rebuild notifications to browsers and tools over
// socket.io.
package reload

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/metrics"
	"github.com/zishang520/socket.io/v2/socket"
)

// EventName is the socket.io event emitted after each successful rebuild.
const EventName = "reload"

// Kinds of reload. A stylesheet reload can be applied without refreshing
// the page.
const (
	KindStylesheet = "stylesheet"
	KindPage       = "page"
)

// Event is the payload of a reload notification.
type Event struct {
	Type string `json:"type"`
}

// Server is a socket.io endpoint that broadcasts reload events.
type Server struct {
	io      *socket.Server
	clients atomic.Int64
}

// NewServer creates a reload server. Mount Handler under /socket.io/.
func NewServer(ctx context.Context) *Server {
	logger := ctxlog.FromContext(ctx).With("component", "reload")
	s := &Server{io: socket.NewServer(nil, nil)}

	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.clients.Add(1)
		metrics.ReloadClients.Inc()
		logger.Debug("Reload client connected.", "sid", client.Id())

		client.On("disconnect", func(...any) {
			s.clients.Add(-1)
			metrics.ReloadClients.Dec()
			logger.Debug("Reload client disconnected.", "sid", client.Id())
		})
	})
	return s
}

// Handler returns the HTTP handler serving the socket.io protocol.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Broadcast sends a reload event of the given kind to every client.
func (s *Server) Broadcast(ctx context.Context, kind string) {
	ctxlog.FromContext(ctx).Info("🔄 Reload broadcast.", "type", kind, "clients", s.Clients())
	s.io.Emit(EventName, map[string]any{"type": kind})
}

// Close disconnects all clients.
func (s *Server) Close() {
	s.io.Close(nil)
}
