// Package chessserver wires the transport: accepting TCP connections,
// running each connection's read loop through the Frame Codec and
// Dispatcher, and draining each Session's outbox on a writer goroutine.
// Grounded on the teacher's internal/login/server.go (NewServer/Run/Serve/
// acceptLoop/handleConnection shape) and internal/gslistener/connection.go
// (reader/writer goroutine pair per connection), adapted from the
// Blowfish/RSA handshake framing to this service's unauthenticated framed
// JSON protocol.
package chessserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/udisondev/chessd/internal/config"
	"github.com/udisondev/chessd/internal/coordinator"
	"github.com/udisondev/chessd/internal/dispatcher"
	"github.com/udisondev/chessd/internal/protocol"
	"github.com/udisondev/chessd/internal/session"
)

// readBufSize is the chunk size read per Conn.Read call; the Decoder
// handles reassembly across calls.
const readBufSize = 4096

// Server accepts client connections on the configured listen address.
type Server struct {
	cfg     config.Config
	coord   *coordinator.Coordinator
	dispatch *dispatcher.Dispatcher
	registry *session.Registry

	mu       sync.Mutex
	listener net.Listener
}

// New wires a Server from its components.
func New(cfg config.Config, coord *coordinator.Coordinator, registry *session.Registry) *Server {
	return &Server{
		cfg:      cfg,
		coord:    coord,
		dispatch: dispatcher.New(coord),
		registry: registry,
	}
}

// Addr returns the listener's bound address, nil if not yet running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run listens on cfg.ListenHost:ListenPort and serves until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ListenHost, s.cfg.ListenPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return s.Serve(ctx, ln)
}

// Serve accepts connections from a caller-supplied listener, useful for
// tests binding an ephemeral port.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	slog.Info("chessd listening", "address", ln.Addr())
	s.acceptLoop(ctx, &wg, ln)
	wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, wg *sync.WaitGroup, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
				slog.Error("accept failed", "err", err)
				continue
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	sess := s.registry.Create(conn)
	slog.Info("connection accepted", "session", sess.ID(), "remote", conn.RemoteAddr())

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop(sess)
	}()

	s.readLoop(connCtx, sess)

	sess.MarkClosed()
	conn.Close()
	wg.Wait()
	s.coord.Disconnect(ctx, sess)
	slog.Info("connection closed", "session", sess.ID())
}

// readLoop feeds bytes into the session's frame decoder and dispatches
// every complete frame, until EOF, a fatal protocol error, or ctx
// cancellation (spec §4.1 error handling).
func (s *Server) readLoop(ctx context.Context, sess *session.Session) {
	dec := protocol.NewDecoder()
	buf := make([]byte, readBufSize)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Closed():
			return
		default:
		}

		_ = sess.Conn().SetReadDeadline(time.Now().Add(time.Second))
		n, err := sess.Conn().Read(buf)
		if n > 0 {
			frames, decodeErr := dec.Feed(buf[:n])
			for _, f := range frames {
				s.dispatch.Dispatch(ctx, sess, f.MessageID, f.Payload)
			}
			if decodeErr != nil {
				slog.Warn("oversized frame, disconnecting", "session", sess.ID(), "err", decodeErr)
				return
			}
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) {
				return
			}
			slog.Warn("read error, disconnecting", "session", sess.ID(), "err", err)
			return
		}
	}
}

// writeLoop drains the session's outbox onto the connection until it is
// closed.
func (s *Server) writeLoop(sess *session.Session) {
	for {
		select {
		case <-sess.Closed():
			return
		case frame, ok := <-sess.Outbox():
			if !ok {
				return
			}
			if _, err := sess.Conn().Write(frame); err != nil {
				slog.Warn("write error, closing session", "session", sess.ID(), "err", err)
				sess.MarkClosed()
				return
			}
		}
	}
}
