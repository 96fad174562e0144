package bootstrap

import (
    "context"
    "crypto/tls"
    "fmt"
    "log"
    "net"
    "strconv"
    "time"

    "github.com/amirimatin/go-platform/pkg/cluster"
    "github.com/amirimatin/go-platform/pkg/discovery"
    dStatic "github.com/amirimatin/go-platform/pkg/discovery/static"
    "github.com/amirimatin/go-platform/pkg/health"
    "github.com/amirimatin/go-platform/pkg/health/checks"
    "github.com/amirimatin/go-platform/pkg/membership"
    ml "github.com/amirimatin/go-platform/pkg/membership/memberlist"
    "github.com/amirimatin/go-platform/pkg/props"
    tlsx "github.com/amirimatin/go-platform/pkg/security/tlsconfig"
    "github.com/amirimatin/go-platform/pkg/transport"
    mgmtgrpc "github.com/amirimatin/go-platform/pkg/transport/grpc"
    httpjson "github.com/amirimatin/go-platform/pkg/transport/httpjson"
)

// Config defines the inputs to assemble a platform node. FromProps fills it
// from platform.properties; flags may override fields afterwards.
type Config struct {
    // Identity, as reported in the cluster health.
    NodeName string
    NodeType health.NodeType
    NodeHost string
    NodePort int

    // Standalone nodes skip membership entirely.
    Standalone bool
    // SeedsCSV lists the cluster hosts; entries without a port use NodePort.
    SeedsCSV string
    // MemAdv is an optional advertise host:port for membership.
    MemAdv string

    // Management API (health/metrics). MgmtAddr empty disables it.
    MgmtAddr  string
    MgmtProto string // "http" (default) or "grpc"

    // TLS (optional) for the management API.
    TLSEnable     bool
    TLSCA         string
    TLSCert       string
    TLSKey        string
    TLSServerName string
    TLSSkipVerify bool

    // SearchURL is the HTTP endpoint of the search engine checked on
    // search and standalone nodes.
    SearchURL string
    // StatusSource replaces the HTTP search engine check when set.
    StatusSource checks.ClusterStatusSource

    PublishInterval time.Duration

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger
}

// FromProps reads the node settings from completed properties.
func FromProps(p *props.Props) (Config, error) {
    var cfg Config
    enabled, err := p.Bool(props.ClusterEnabled, false)
    if err != nil { return cfg, err }
    cfg.Standalone = !enabled

    if cfg.NodeType, err = health.ParseNodeType(p.ValueOr(props.ClusterNodeType, "application")); err != nil {
        return cfg, fmt.Errorf("%w: %s: %v", props.ErrInvalidValue, props.ClusterNodeType, err)
    }
    cfg.NodeName = p.Value(props.ClusterNodeName)
    cfg.NodeHost = p.ValueOr(props.ClusterNodeHost, "127.0.0.1")
    if cfg.NodePort, err = p.Int(props.ClusterNodePort, 9003); err != nil { return cfg, err }
    cfg.SeedsCSV = p.Value(props.ClusterHosts)

    cfg.MgmtAddr = p.Value(props.MgmtAddr)
    cfg.MgmtProto = p.ValueOr(props.MgmtProto, "http")
    if cfg.TLSEnable, err = p.Bool(props.MgmtTLSEnabled, false); err != nil { return cfg, err }
    cfg.TLSCA = p.Value(props.MgmtTLSCA)
    cfg.TLSCert = p.Value(props.MgmtTLSCert)
    cfg.TLSKey = p.Value(props.MgmtTLSKey)
    cfg.TLSServerName = p.Value(props.MgmtTLSServerName)
    if cfg.TLSSkipVerify, err = p.Bool(props.MgmtTLSSkipVerify, false); err != nil { return cfg, err }

    httpPort, err := p.Int(props.SearchHttpPort, 9002)
    if err != nil { return cfg, err }
    cfg.SearchURL = "http://" + net.JoinHostPort(p.ValueOr(props.SearchHost, "127.0.0.1"), strconv.Itoa(httpPort))
    return cfg, nil
}

// Build assembles a cluster.Node from Config without starting it.
func Build(cfg Config) (*cluster.Node, error) {
    if cfg.Logger == nil { cfg.Logger = log.Default() }
    if cfg.NodeType == "" { cfg.NodeType = health.NodeApplication }

    opts := cluster.Options{
        Details:         health.NodeDetails{Type: cfg.NodeType, Name: cfg.NodeName, Host: cfg.NodeHost, Port: cfg.NodePort},
        Standalone:      cfg.Standalone,
        Logger:          cfg.Logger,
        PublishInterval: cfg.PublishInterval,
    }

    // Search engine check: standalone nodes run it locally, in a cluster
    // only search nodes do.
    if cfg.Standalone || cfg.NodeType == health.NodeSearch {
        src := cfg.StatusSource
        if src == nil { src = checks.NewHTTPStatusSource(cfg.SearchURL) }
        opts.Checks = append(opts.Checks, checks.EsStatus{Source: src})
    }

    if !cfg.Standalone {
        bind := net.JoinHostPort(cfg.NodeHost, strconv.Itoa(cfg.NodePort))
        mem, err := ml.New(ml.Options{NodeID: cfg.NodeName, Bind: bind, Advertise: cfg.MemAdv, Logger: cfg.Logger})
        if err != nil { return nil, err }
        opts.Membership = mem
        opts.Discovery = seeds(cfg)
        if hr, ok := mem.(membership.HealthReporter); ok {
            opts.Checks = append(opts.Checks, checks.Gossip{Reporter: hr})
        }
    }

    if cfg.MgmtAddr != "" {
        srv, cli, err := management(cfg)
        if err != nil { return nil, err }
        opts.RPCServer, opts.RPCClient = srv, cli
    }
    return cluster.New(opts)
}

// Run builds and starts the node, returning the instance for lifecycle
// control. The caller is responsible for calling Close() when finished.
func Run(ctx context.Context, cfg Config) (*cluster.Node, error) {
    n, err := Build(cfg)
    if err != nil { return nil, err }
    if err := n.Start(ctx); err != nil {
        _ = n.Close()
        return nil, err
    }
    return n, nil
}

func seeds(cfg Config) discovery.Discovery {
    return dStatic.New(dStatic.WithPort(dStatic.Parse(cfg.SeedsCSV), cfg.NodePort)...)
}

func management(cfg Config) (transport.RPCServer, transport.RPCClient, error) {
    var srvTLS, cliTLS *tls.Config
    if cfg.TLSEnable {
        topts := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName}
        var err error
        if srvTLS, err = topts.Server(); err != nil { return nil, nil, err }
        if cliTLS, err = topts.Client(); err != nil { return nil, nil, err }
    }
    switch cfg.MgmtProto {
    case "grpc":
        s := mgmtgrpc.NewServer(cfg.MgmtAddr).UseLogger(cfg.Logger)
        c := mgmtgrpc.NewClient(3 * time.Second)
        if srvTLS != nil { s.UseTLS(srvTLS) }
        if cliTLS != nil { c.UseTLS(cliTLS) }
        return s, c, nil
    case "", "http":
        s := httpjson.NewServer(cfg.MgmtAddr, cfg.Logger)
        c := httpjson.NewClient(3 * time.Second)
        if srvTLS != nil { s.UseTLS(srvTLS) }
        if cliTLS != nil { c.UseTLS(cliTLS) }
        return s, c, nil
    default:
        return nil, nil, fmt.Errorf("%w: %s=%q", props.ErrInvalidValue, props.MgmtProto, cfg.MgmtProto)
    }
}
