// Package web hosts the embedded web UI: static files, an HTTP call
// endpoint per channel method, and a WebSocket carrying method calls.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rexliu/talkliner/pkg/channel"
	"github.com/rexliu/talkliner/pkg/messenger"
)

// Invoker is the messenger surface the web host needs.
type Invoker interface {
	Invoke(ctx context.Context, name string, call channel.Call) (channel.Result, messenger.Event)
	Channels() []string
	Methods(name string) []string
}

// Options configures the router.
type Options struct {
	StaticDir   string
	AllowOrigin string
}

// Server serves the router on a TCP listener.
type Server struct {
	httpServer *http.Server
	hub        *Hub
	log        *slog.Logger
}

// NewRouter builds the HTTP handler tree.
func NewRouter(opts Options, inv Invoker, hub *Hub, log *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(CORS(opts.AllowOrigin))

	router.NotFound(notFound)
	router.MethodNotAllowed(notAllowed)

	router.Get("/ws", ServeWs(hub, inv, opts.AllowOrigin, log))
	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(render.SetContentType(render.ContentTypeJSON))
		v1.Route("/channels", func(r chi.Router) {
			r.Get("/", ListChannels(inv))
			r.Get("/{channel}", ListMethods(inv))
			r.Post("/{channel}/{method}", InvokeMethod(log, inv))
		})
	})
	if opts.StaticDir != "" {
		router.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}
	return router
}

// New constructs a server; call Serve to start it.
func New(opts Options, inv Invoker, log *slog.Logger) *Server {
	hub := NewHub(log)
	return &Server{
		httpServer: &http.Server{
			Handler:           NewRouter(opts, inv, hub, log),
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
		},
		hub: hub,
		log: log.With(slog.String("module", "web.server")),
	}
}

// Serve accepts connections on address until Shutdown.
func (s *Server) Serve(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.ServeListener(listener)
}

// ServeListener accepts connections on ln until Shutdown.
func (s *Server) ServeListener(ln net.Listener) error {
	s.log.Info("starting web server", slog.String("address", ln.Addr().String()))
	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and closes WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("stopping web server", slog.Int("websocket_clients", s.hub.count()))
	s.hub.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, channel.Errorf("not_found", "Requested resource not found", nil))
}

func notAllowed(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusMethodNotAllowed)
	render.JSON(w, r, channel.Errorf("method_not_allowed", "Method not allowed", nil))
}
