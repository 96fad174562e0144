package cluster

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "sync/atomic"
    "time"

    "github.com/amirimatin/go-platform/pkg/health"
    "github.com/amirimatin/go-platform/pkg/health/ws"
    "github.com/amirimatin/go-platform/pkg/internal/logutil"
    "github.com/amirimatin/go-platform/pkg/membership"
    obsmetrics "github.com/amirimatin/go-platform/pkg/observability/metrics"
    "github.com/amirimatin/go-platform/pkg/observability/tracing"
    "github.com/amirimatin/go-platform/pkg/transport"
)

// MetaLimit is the size budget of the gossiped metadata, matching
// memberlist's limit.
const MetaLimit = 512

// Node is the health facade of a platform node. It runs the local checks,
// gossips the result to its peers and builds the cluster health from what
// the peers published. Node implements health.Checker and ws.Topology.
type Node struct {
    opts Options
    mu   sync.RWMutex
    run  struct {
        started bool
        closed  bool
    }
    // started is Details.Started, set once by Start.
    started atomic.Int64
    checker *health.NodeChecker
    action  *ws.HealthAction
    eb      eventBus

    pub struct {
        mu    sync.Mutex
        last  *health.NodeHealth
        peers map[string]health.Status
    }
}

// New assembles a node from validated options. Nothing starts until Start.
func New(opts Options) (*Node, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    if opts.PublishInterval <= 0 { opts.PublishInterval = 5 * time.Second }
    if opts.PeerTimeout <= 0 { opts.PeerTimeout = 2 * time.Second }
    n := &Node{opts: opts, checker: health.NewNodeChecker(opts.Checks...)}
    n.pub.peers = make(map[string]health.Status)
    n.started.Store(opts.Details.Started)
    n.action = ws.NewHealthAction(n, n)
    return n, nil
}

// Start launches the management server, then membership: the local health
// is published before joining the seeds so peers see it right away.
func (n *Node) Start(ctx context.Context) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.run.started { return nil }
    if n.run.closed { return fmt.Errorf("cluster: node stopped") }
    obsmetrics.Register()
    n.started.CompareAndSwap(0, time.Now().UnixMilli())

    if s := n.opts.RPCServer; s != nil {
        if err := s.Start(ctx, transport.Handlers{Health: n.healthJSON, NodeHealth: n.nodeHealthJSON}); err != nil {
            return fmt.Errorf("cluster: start management server: %w", err)
        }
        logutil.Infof(n.opts.Logger, "management endpoint listening at %s (health/metrics/healthz)", s.Addr())
    }

    if !n.opts.Standalone {
        if err := n.opts.Membership.Start(ctx); err != nil { return err }
        if err := n.publish(ctx); err != nil {
            logutil.Warnf(n.opts.Logger, "initial health publish failed: %v", err)
        }
        if seeds := n.opts.Discovery.Seeds(); len(seeds) > 0 {
            logutil.Infof(n.opts.Logger, "joining membership seeds: %v", seeds)
            if err := n.opts.Membership.Join(seeds); err != nil {
                logutil.Warnf(n.opts.Logger, "join failed, running alone until peers reach us: %v", err)
            }
        }
        go n.publishLoop(ctx)
        go n.membershipEventsLoop(ctx)
    }
    n.run.started = true
    return nil
}

// Stop leaves the cluster and shuts down membership and the management
// server.
func (n *Node) Stop(ctx context.Context) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.run.closed { return nil }
    n.run.closed = true
    if m := n.opts.Membership; m != nil && !n.opts.Standalone {
        _ = m.Leave()
        _ = m.Stop()
    }
    if s := n.opts.RPCServer; s != nil { _ = s.Stop(ctx) }
    return nil
}

// Close is Stop with a background context.
func (n *Node) Close() error { return n.Stop(context.Background()) }

func (n *Node) IsStandalone() bool { return n.opts.Standalone }

// ManagementAddr is the address the management server listens on, empty
// when there is none.
func (n *Node) ManagementAddr() string {
    if n.opts.RPCServer == nil { return "" }
    return n.opts.RPCServer.Addr()
}

// Details returns the identity of this node.
func (n *Node) Details() health.NodeDetails {
    d := n.opts.Details
    d.Started = n.started.Load()
    return d
}

// Health renders the system health document.
func (n *Node) Health(ctx context.Context) (*ws.HealthResponse, error) { return n.action.Handle(ctx) }

// CheckNode runs the local checks.
func (n *Node) CheckNode(ctx context.Context) (health.Health, error) {
    ctx, end := tracing.StartSpan(ctx, "cluster.checkNode")
    defer end()
    h, err := n.checker.CheckNode(ctx)
    if err != nil {
        obsmetrics.HealthCheckErrors.Inc()
        return health.Health{}, err
    }
    d := n.Details()
    obsmetrics.NodeHealthStatus.WithLabelValues(d.Name, string(d.Type)).Set(float64(h.Status))
    return h, nil
}

// LocalHealth is the local check result with this node's details.
func (n *Node) LocalHealth(ctx context.Context) (health.NodeHealth, error) {
    h, err := n.CheckNode(ctx)
    if err != nil { return health.NodeHealth{}, err }
    return health.NodeHealth{Health: h, Details: n.Details()}, nil
}

// CheckCluster builds the cluster health from the reports gossiped by the
// members. The local report is computed fresh. Members that have not
// published yet are left out.
func (n *Node) CheckCluster(ctx context.Context) (health.ClusterHealth, error) {
    if n.opts.Standalone { return health.ClusterHealth{}, ErrStandalone }
    n.mu.RLock()
    started, closed := n.run.started, n.run.closed
    n.mu.RUnlock()
    if !started || closed { return health.ClusterHealth{}, ErrNotStarted }

    ctx, end := tracing.StartSpan(ctx, "cluster.checkCluster")
    defer end()
    localID := n.opts.Membership.Local().ID
    members := n.opts.Membership.Members()
    obsmetrics.ClusterMembers.Set(float64(len(members)))

    nodes := make([]health.NodeHealth, 0, len(members))
    for _, m := range members {
        if m.ID == localID {
            nh, err := n.LocalHealth(ctx)
            if err != nil { return health.ClusterHealth{}, err }
            nodes = append(nodes, nh)
            continue
        }
        nh, ok := n.memberHealth(ctx, m)
        if !ok { continue }
        obsmetrics.NodeHealthStatus.WithLabelValues(nh.Details.Name, string(nh.Details.Type)).Set(float64(nh.Health.Status))
        nodes = append(nodes, nh)
    }
    ch := health.NewClusterHealth(nodes)
    obsmetrics.ClusterHealthStatus.Set(float64(ch.Health.Status))
    return ch, nil
}

// memberHealth decodes the report gossiped by m. A report that lost its
// causes is fetched in full from the member's management endpoint when a
// client is configured; the gossiped copy is used if that fails.
func (n *Node) memberHealth(ctx context.Context, m membership.MemberInfo) (health.NodeHealth, bool) {
    raw := m.Meta[membership.MetaHealth]
    if raw == "" {
        logutil.Warnf(n.opts.Logger, "member %s has not published its health", m.ID)
        return health.NodeHealth{}, false
    }
    nh, err := health.DecodeNodeHealth([]byte(raw))
    if err != nil {
        logutil.Warnf(n.opts.Logger, "member %s: %v", m.ID, err)
        return health.NodeHealth{}, false
    }
    if m.Meta[membership.MetaHealthTruncated] != "true" || n.opts.RPCClient == nil { return nh, true }
    mgmt := m.Meta[membership.MetaMgmt]
    if mgmt == "" { return nh, true }
    full, err := n.fetchNodeHealth(ctx, mgmt)
    if err != nil {
        logutil.Warnf(n.opts.Logger, "member %s: full health unavailable: %v", m.ID, err)
        return nh, true
    }
    return full, true
}

func (n *Node) fetchNodeHealth(ctx context.Context, addr string) (health.NodeHealth, error) {
    cctx, cancel := context.WithTimeout(ctx, n.opts.PeerTimeout)
    defer cancel()
    b, err := n.opts.RPCClient.GetNodeHealth(cctx, addr)
    if err != nil { return health.NodeHealth{}, fmt.Errorf("%w: %s: %v", ErrUnreachable, addr, err) }
    return health.DecodeNodeHealth(b)
}

func (n *Node) healthJSON(ctx context.Context) ([]byte, error) {
    resp, err := n.action.Handle(ctx)
    if err != nil { return nil, err }
    return json.Marshal(resp)
}

func (n *Node) nodeHealthJSON(ctx context.Context) ([]byte, error) {
    nh, err := n.LocalHealth(ctx)
    if err != nil { return nil, err }
    return health.EncodeNodeHealth(nh)
}

func (n *Node) publishLoop(ctx context.Context) {
    ticker := time.NewTicker(n.opts.PublishInterval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            n.mu.RLock()
            closed := n.run.closed
            n.mu.RUnlock()
            if closed { return }
            if err := n.publish(ctx); err != nil {
                logutil.Warnf(n.opts.Logger, "health publish failed: %v", err)
            }
        }
    }
}

// publish gossips the local health when it changed since the last publish.
func (n *Node) publish(ctx context.Context) error {
    nh, err := n.LocalHealth(ctx)
    if err != nil { return err }

    n.pub.mu.Lock()
    defer n.pub.mu.Unlock()
    if n.pub.last != nil && n.pub.last.Equal(nh) { return nil }

    meta, truncated, err := n.encodeMeta(nh)
    if err != nil { return err }
    if err := n.opts.Membership.UpdateMeta(meta); err != nil { return err }
    obsmetrics.MetaPublishes.Inc()
    if truncated { obsmetrics.MetaTruncations.Inc() }

    if n.pub.last == nil || n.pub.last.Health.Status != nh.Health.Status {
        cp := nh
        n.eb.publish(Event{Type: EventHealthChanged, At: time.Now(), Health: &cp})
    }
    n.pub.last = &nh
    return nil
}

// encodeMeta renders the metadata of this node. Causes are dropped when the
// report does not fit MetaLimit; peers then ask for it over RPC.
func (n *Node) encodeMeta(nh health.NodeHealth) (map[string]string, bool, error) {
    build := func(nh health.NodeHealth, truncated bool) (map[string]string, error) {
        b, err := health.EncodeNodeHealth(nh)
        if err != nil { return nil, err }
        meta := map[string]string{membership.MetaHealth: string(b)}
        if s := n.opts.RPCServer; s != nil { meta[membership.MetaMgmt] = s.Addr() }
        if truncated { meta[membership.MetaHealthTruncated] = "true" }
        return meta, nil
    }
    meta, err := build(nh, false)
    if err != nil { return nil, false, err }
    if metaSize(meta) <= MetaLimit { return meta, false, nil }

    cut := nh
    cut.Health.Causes = nil
    meta, err = build(cut, true)
    if err != nil { return nil, false, err }
    if size := metaSize(meta); size > MetaLimit {
        return nil, false, fmt.Errorf("cluster: node metadata is %d bytes even without causes", size)
    }
    return meta, true, nil
}

func metaSize(meta map[string]string) int {
    b, _ := json.Marshal(meta)
    return len(b)
}

func (n *Node) membershipEventsLoop(ctx context.Context) {
    evch := n.opts.Membership.Events()
    for {
        select {
        case <-ctx.Done():
            return
        case e, ok := <-evch:
            if !ok { return }
            n.onMembershipEvent(e)
        }
    }
}

func (n *Node) onMembershipEvent(e membership.Event) {
    m := e.Member
    switch e.Type {
    case membership.EventJoin:
        n.eb.publish(Event{Type: EventMemberJoin, At: e.At, Member: &m})
        n.trackPeer(m, e.At)
    case membership.EventLeave:
        n.pub.mu.Lock()
        delete(n.pub.peers, m.ID)
        n.pub.mu.Unlock()
        n.eb.publish(Event{Type: EventMemberLeave, At: e.At, Member: &m})
    case membership.EventUpdate:
        n.trackPeer(m, e.At)
    }
    obsmetrics.ClusterMembers.Set(float64(len(n.opts.Membership.Members())))
}

// trackPeer publishes EventHealthChanged when a peer reports a new status.
func (n *Node) trackPeer(m membership.MemberInfo, at time.Time) {
    if m.ID == n.opts.Membership.Local().ID { return }
    raw := m.Meta[membership.MetaHealth]
    if raw == "" { return }
    nh, err := health.DecodeNodeHealth([]byte(raw))
    if err != nil { return }
    n.pub.mu.Lock()
    prev, seen := n.pub.peers[m.ID]
    n.pub.peers[m.ID] = nh.Health.Status
    n.pub.mu.Unlock()
    if seen && prev == nh.Health.Status { return }
    if seen || nh.Health.Status != health.Green {
        logutil.Infof(n.opts.Logger, "%s node %s is %s", nh.Details.Type, nh.Details.Name, nh.Health.Status)
    }
    mm := m
    n.eb.publish(Event{Type: EventHealthChanged, At: at, Member: &mm, Health: &nh})
}
