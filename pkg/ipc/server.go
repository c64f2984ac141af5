package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rexliu/talkliner/pkg/channel"
	"github.com/rexliu/talkliner/pkg/messenger"
)

// Invoker delivers a call to a named channel.
type Invoker interface {
	Invoke(ctx context.Context, name string, call channel.Call) (channel.Result, messenger.Event)
}

// StreamFunc opens a stream of pre-encoded frames. The stream ends when the
// returned channel is closed or ctx is cancelled.
type StreamFunc func(ctx context.Context) (<-chan []byte, *channel.Error)

// Logger is satisfied by logging.Logger; kept minimal to avoid dependency cycles.
type Logger interface {
	Printf(format string, v ...any)
}

// MethodSubscribeEvents is the stream method the daemon registers for
// call_dispatched events.
const MethodSubscribeEvents = "subscribe_events"

var validate = validator.New()

// Server listens for method calls over Unix sockets.
type Server struct {
	ln      net.Listener
	invoker Invoker
	mu      sync.RWMutex
	streams map[string]StreamFunc
	closed  bool
	logger  Logger
}

// NewServer constructs an IPC server delivering calls to invoker.
func NewServer(invoker Invoker, logger Logger) *Server {
	return &Server{
		invoker: invoker,
		streams: make(map[string]StreamFunc),
		logger:  logger,
	}
}

// RegisterStream installs a streaming method. Stream methods are addressed
// by a request with no channel.
func (s *Server) RegisterStream(method string, fn StreamFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[method] = fn
}

// Start begins accepting connections on endpoint.
func (s *Server) Start(ctx context.Context, endpoint string) error {
	if s == nil {
		return errors.New("nil server")
	}
	if s.invoker == nil {
		return errors.New("nil invoker")
	}
	ln, err := net.Listen("unix", endpoint)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	go s.acceptLoop(ctx)
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.isClosed() {
				return
			}
			s.logf("accept error: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		payload, err := readFrame(conn)
		if err != nil {
			return
		}
		var req Request
		if err := json.Unmarshal(payload, &req); err != nil {
			s.writeError(conn, "", channel.CodeInvalidRequest, "invalid json", nil)
			continue
		}
		if err := validate.Struct(req); err != nil {
			s.writeError(conn, req.ID, channel.CodeInvalidRequest, "method required", nil)
			continue
		}
		if req.Channel == "" {
			if stream := s.lookupStream(req.Method); stream != nil {
				s.serveStream(ctx, conn, req, stream)
				return
			}
		}
		res, ev := s.invoker.Invoke(ctx, req.Channel, req.Call())
		if err := s.writeResponse(conn, NewResponse(req.ID, ev.TraceID, res)); err != nil {
			return
		}
	}
}

// serveStream takes over the connection until the client disconnects or the
// stream ends. A subscribed connection is receive-only: anything the client
// sends after the ack ends the subscription.
func (s *Server) serveStream(ctx context.Context, conn net.Conn, req Request, stream StreamFunc) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames, rpcErr := stream(streamCtx)
	if rpcErr != nil {
		_ = s.writeResponse(conn, Response{ID: req.ID, Error: rpcErr, TraceID: newTraceID()})
		return
	}
	ack, _ := json.Marshal(map[string]any{"subscribed": req.Method})
	if err := s.writeResponse(conn, Response{ID: req.ID, OK: true, Result: ack, TraceID: newTraceID()}); err != nil {
		return
	}
	go func() {
		// A read returning data or an error both end the stream.
		var buf [1]byte
		_, _ = conn.Read(buf[:])
		cancel()
	}()
	for {
		select {
		case <-streamCtx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		}
	}
}

func (s *Server) lookupStream(method string) StreamFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streams[method]
}

func (s *Server) writeResponse(conn net.Conn, resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return writeFrame(conn, payload)
}

func (s *Server) writeError(conn net.Conn, id, code, msg string, details map[string]any) {
	resp := Response{ID: id, TraceID: newTraceID()}
	resp.Error = channel.Errorf(code, msg, details)
	_ = s.writeResponse(conn, resp)
}

// Stop shuts down the listener. Open connections end when their clients
// disconnect.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.mu.Unlock()
	return err
}

func (s *Server) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Server) logf(format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}

func newTraceID() string {
	return fmt.Sprintf("ipc-%d", time.Now().UnixNano())
}
