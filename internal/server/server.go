// Package server exposes the hub over TCP and HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ctchen222/Battleship/internal/api/controller"
	"ctchen222/Battleship/internal/api/response"
	"ctchen222/Battleship/internal/hub"
	"ctchen222/Battleship/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// Options configures a Server. Users may be nil when no user store exists.
type Options struct {
	Users        *controller.UserController
	Games        *controller.GameController
	WriteTimeout time.Duration
}

// Server accepts game connections and serves the HTTP API.
type Server struct {
	hub          *hub.Hub
	users        *controller.UserController
	games        *controller.GameController
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

func NewServer(h *hub.Hub, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		hub:          h,
		users:        opts.Users,
		games:        opts.Games,
		writeTimeout: opts.WriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Engine builds the gin router.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	if s.games != nil {
		api.GET("/stats", s.games.Stats)
		api.GET("/matches", s.games.Matches)
		api.GET("/leaderboard", s.games.Leaderboard)
		api.GET("/players/:name", s.games.Player)
	}
	if s.users != nil {
		users := api.Group("/users")
		users.POST("/register", s.users.Register)
		users.POST("/login", s.users.Login)
	}
	r.NoRoute(func(c *gin.Context) {
		response.ErrorResponse(c, http.StatusNotFound, "not found")
	})
	return r
}

// handleWebSocket upgrades the request and runs a game session on it until
// the client leaves.
func (s *Server) handleWebSocket(c *gin.Context) {
	_, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("remote.addr", c.Request.RemoteAddr),
	))

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Failed to upgrade connection", "remote.addr", c.Request.RemoteAddr, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		span.End()
		return
	}
	span.End()

	s.conns.Add(1)
	defer s.conns.Done()
	cause := s.hub.Serve(s.ctx, session.NewWSConn(ws, s.writeTimeout))
	slog.Debug("WebSocket session ended", "remote.addr", c.Request.RemoteAddr, "cause", cause)
}

// Close ends every running session and waits for them to clean up.
// Listeners passed to ServeTCP are closed as well.
func (s *Server) Close() {
	s.cancel()
	s.conns.Wait()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.DebugContext(c.Request.Context(), "HTTP request",
			"http.method", c.Request.Method,
			"http.path", c.FullPath(),
			"http.status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
