package transport

import "context"

// Management endpoints served over HTTP.
const (
    PathHealth     = "/api/system/health"
    PathNodeHealth = "/api/system/node-health"
    PathLiveness   = "/healthz"
    PathMetrics    = "/metrics"
)

// HealthFunc returns a JSON document. Using []byte keeps this package free
// of the health types.
type HealthFunc func(ctx context.Context) ([]byte, error)

// Handlers back the management endpoints.
type Handlers struct {
    // Health renders the system health document.
    Health HealthFunc
    // NodeHealth returns the encoded health of the serving node, used by
    // peers when gossip could not carry the full report.
    NodeHealth HealthFunc
}

// RPCServer exposes the management endpoints.
type RPCServer interface {
    Start(ctx context.Context, h Handlers) error
    Addr() string
    Stop(ctx context.Context) error
}

// RPCClient calls the management endpoints of a node, using the same
// protocol as the server (HTTP/JSON or gRPC with a JSON codec).
type RPCClient interface {
    GetHealth(ctx context.Context, addr string) ([]byte, error)
    GetNodeHealth(ctx context.Context, addr string) ([]byte, error)
}
