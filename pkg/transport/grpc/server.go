package grpc

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "log"
    "net"
    "sync"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/codes"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/health"
    healthpb "google.golang.org/grpc/health/grpc_health_v1"
    "google.golang.org/grpc/keepalive"
    "google.golang.org/grpc/status"

    "github.com/amirimatin/go-platform/pkg/internal/logutil"
    "github.com/amirimatin/go-platform/pkg/observability/tracing"
    "github.com/amirimatin/go-platform/pkg/transport"
)

const serviceName = "platform.v1.Management"

// Server implements transport.RPCServer over gRPC with a JSON codec, plus
// the standard grpc.health.v1 service.
type Server struct {
    bind   string
    tlsCfg *tls.Config
    logger *log.Logger

    mu     sync.Mutex
    lis    net.Listener
    srv    *grpc.Server
    health *health.Server
}

func NewServer(bind string) *Server { return &Server{bind: bind, logger: log.Default()} }

// UseTLS enables TLS with cfg.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// UseLogger sets the logger for serve errors.
func (s *Server) UseLogger(l *log.Logger) *Server {
    if l != nil { s.logger = l }
    return s
}

type empty struct{}

// blob carries a JSON document as is.
type blob struct {
    Data json.RawMessage `json:"data"`
}

type managementServer interface {
    GetHealth(ctx context.Context, in *empty) (*blob, error)
    GetNodeHealth(ctx context.Context, in *empty) (*blob, error)
}

type mgmtImpl struct{ h transport.Handlers }

func (m *mgmtImpl) GetHealth(ctx context.Context, _ *empty) (*blob, error) {
    return call(ctx, "grpc.health", m.h.Health)
}

func (m *mgmtImpl) GetNodeHealth(ctx context.Context, _ *empty) (*blob, error) {
    return call(ctx, "grpc.nodeHealth", m.h.NodeHealth)
}

func call(ctx context.Context, span string, fn transport.HealthFunc) (*blob, error) {
    if fn == nil { return nil, status.Error(codes.Unimplemented, "not supported") }
    ctx, end := tracing.StartSpan(ctx, span)
    defer end()
    b, err := fn(ctx)
    if err != nil { return nil, status.Error(codes.Internal, err.Error()) }
    return &blob{Data: b}, nil
}

// Service descriptor and handlers (hand-written, no codegen required)
var managementServiceDesc = grpc.ServiceDesc{
    ServiceName: serviceName,
    HandlerType: (*managementServer)(nil),
    Methods: []grpc.MethodDesc{
        {MethodName: "GetHealth", Handler: blobHandler("GetHealth", managementServer.GetHealth)},
        {MethodName: "GetNodeHealth", Handler: blobHandler("GetNodeHealth", managementServer.GetNodeHealth)},
    },
}

func blobHandler(method string, fn func(managementServer, context.Context, *empty) (*blob, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
    return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
        in := new(empty)
        if err := dec(in); err != nil { return nil, err }
        if interceptor == nil { return fn(srv.(managementServer), ctx, in) }
        info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
        handler := func(ctx context.Context, req any) (any, error) {
            return fn(srv.(managementServer), ctx, req.(*empty))
        }
        return interceptor(ctx, in, info, handler)
    }
}

func (s *Server) Start(ctx context.Context, h transport.Handlers) error {
    lis, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    // The management service is selected by the "json" content-subtype;
    // the health service keeps protobuf.
    opts := []grpc.ServerOption{
        grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{MinTime: 5 * time.Second, PermitWithoutStream: true}),
        grpc.KeepaliveParams(keepalive.ServerParameters{Time: 30 * time.Second, Timeout: 10 * time.Second}),
    }
    if s.tlsCfg != nil { opts = append(opts, grpc.Creds(credentials.NewTLS(s.tlsCfg))) }
    srv := grpc.NewServer(opts...)
    hs := health.NewServer()
    hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
    healthpb.RegisterHealthServer(srv, hs)
    srv.RegisterService(&managementServiceDesc, &mgmtImpl{h: h})

    s.mu.Lock()
    s.lis, s.srv, s.health = lis, srv, hs
    s.mu.Unlock()

    go func() {
        <-ctx.Done()
        sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        _ = s.Stop(sctx)
    }()
    go func() {
        if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
            logutil.Errorf(s.logger, "grpc: serve error: %v", err)
        }
    }()
    return nil
}

// Addr returns the listening address once started, the bind address before.
func (s *Server) Addr() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.lis != nil { return s.lis.Addr().String() }
    return s.bind
}

// Stop marks the service NOT_SERVING and stops gracefully, forcing the stop
// when ctx ends first.
func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv, hs := s.srv, s.health
    s.srv, s.health = nil, nil
    s.mu.Unlock()
    if srv == nil { return nil }
    hs.Shutdown()
    ch := make(chan struct{})
    go func() { srv.GracefulStop(); close(ch) }()
    select {
    case <-ch:
    case <-ctx.Done():
        srv.Stop()
    }
    return nil
}

var _ transport.RPCServer = (*Server)(nil)
