package server

import (
	"errors"
	"log/slog"
	"net"

	"ctchen222/Battleship/internal/session"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ServeTCP accepts line-protocol clients on ln until Close is called. It
// returns nil after a clean shutdown.
func (s *Server) ServeTCP(ln net.Listener) error {
	go func() {
		<-s.ctx.Done()
		ln.Close()
	}()

	slog.Info("Server is listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.ctx.Err() != nil {
				slog.Info("Listener closed", "addr", ln.Addr().String())
				return nil
			}
			slog.Warn("Failed to accept connection", "error", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	// The span only marks the accept; session spans hang off it.
	ctx, span := tracer.Start(s.ctx, "server.handleConn", trace.WithAttributes(
		attribute.String("remote.addr", conn.RemoteAddr().String()),
	))
	span.End()

	cause := s.hub.Serve(ctx, session.NewTCPConn(conn, s.writeTimeout))
	slog.Debug("TCP session ended", "remote.addr", conn.RemoteAddr().String(), "cause", cause)
}
