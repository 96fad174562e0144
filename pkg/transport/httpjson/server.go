package httpjson

import (
    "context"
    "crypto/tls"
    "fmt"
    "log"
    "net"
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/amirimatin/go-platform/pkg/internal/logutil"
    "github.com/amirimatin/go-platform/pkg/observability/tracing"
    "github.com/amirimatin/go-platform/pkg/transport"
)

// Server exposes the management endpoints over HTTP: the health document,
// the node health used by peers, liveness and Prometheus metrics.
type Server struct {
    bind   string
    logger *log.Logger
    tlsCfg *tls.Config

    mu   sync.Mutex
    srv  *http.Server
    addr string
}

// NewServer binds to the given TCP address (e.g. ":9004"); port 0 picks a
// free port, reported by Addr after Start.
func NewServer(bind string, logger *log.Logger) *Server {
    if logger == nil { logger = log.Default() }
    return &Server{bind: bind, logger: logger, addr: bind}
}

// UseTLS serves HTTPS with cfg.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// Handler returns the management mux; exposed for tests and embedding.
func (s *Server) Handler(h transport.Handlers) http.Handler {
    mux := http.NewServeMux()
    mux.HandleFunc(transport.PathHealth, s.jsonHandler("http.health", h.Health))
    mux.HandleFunc(transport.PathNodeHealth, s.jsonHandler("http.nodeHealth", h.NodeHealth))
    mux.HandleFunc(transport.PathLiveness, func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet { http.Error(w, "method not allowed", http.StatusMethodNotAllowed); return }
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.Handle(transport.PathMetrics, promhttp.Handler())
    return mux
}

func (s *Server) jsonHandler(span string, fn transport.HealthFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet { http.Error(w, "method not allowed", http.StatusMethodNotAllowed); return }
        if fn == nil { http.Error(w, "not supported", http.StatusNotImplemented); return }
        ctx, end := tracing.StartSpan(r.Context(), span)
        defer end()
        data, err := fn(ctx)
        if err != nil {
            logutil.Warnf(s.logger, "httpjson: %s failed: %v", r.URL.Path, err)
            http.Error(w, fmt.Sprintf("health error: %v", err), http.StatusInternalServerError)
            return
        }
        w.Header().Set("Content-Type", "application/json")
        _, _ = w.Write(data)
    }
}

// Start listens and serves until ctx is canceled or Stop is called.
func (s *Server) Start(ctx context.Context, h transport.Handlers) error {
    ln, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    if s.tlsCfg != nil { ln = tls.NewListener(ln, s.tlsCfg) }

    srv := &http.Server{Handler: s.Handler(h), ReadHeaderTimeout: 5 * time.Second}
    s.mu.Lock()
    s.srv = srv
    s.addr = ln.Addr().String()
    s.mu.Unlock()

    go func() {
        <-ctx.Done()
        _ = s.Stop(context.Background())
    }()
    go func() {
        if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
            logutil.Errorf(s.logger, "httpjson: server error: %v", err)
        }
    }()
    return nil
}

// Addr returns the listening address once started, the bind address before.
func (s *Server) Addr() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.addr
}

// Stop attempts a graceful shutdown with a short timeout.
func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv := s.srv
    s.srv = nil
    s.mu.Unlock()
    if srv == nil { return nil }
    c, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    return srv.Shutdown(c)
}

var _ transport.RPCServer = (*Server)(nil)
