package memberlist

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "net"
    "strconv"
    "sync"
    "time"

    "github.com/hashicorp/memberlist"

    "github.com/amirimatin/go-platform/pkg/internal/logutil"
    base "github.com/amirimatin/go-platform/pkg/membership"
)

var (
    ErrNotStarted   = errors.New("memberlist: not started")
    ErrMetaTooLarge = fmt.Errorf("memberlist: metadata exceeds %d bytes", memberlist.MetaMaxSize)
)

// Options configures the memberlist-based membership.
type Options struct {
    NodeID string
    // Bind is host:port; port 0 picks a free one.
    Bind string
    // Advertise is the host:port peers use to reach this node. Derived from
    // Bind when empty.
    Advertise string
    // Meta is the initial metadata.
    Meta   map[string]string
    Logger *log.Logger

    // Zero means memberlist defaults.
    ProbeInterval time.Duration
    ProbeTimeout  time.Duration
    SuspicionMult int
    // UpdateTimeout bounds the gossip of a metadata change.
    UpdateTimeout time.Duration
}

type impl struct {
    mu       sync.RWMutex
    opts     Options
    ml       *memberlist.Memberlist
    delegate *metaDelegate
    closed   bool

    // evMu guards evts separately: memberlist delivers events while Start
    // and Stop hold mu.
    evMu     sync.RWMutex
    evts     chan base.Event
    evClosed bool
}

// New constructs a memberlist-backed membership. Nothing listens until
// Start.
func New(opts Options) (base.Membership, error) {
    if opts.NodeID == "" { return nil, fmt.Errorf("memberlist: empty NodeID") }
    if opts.Bind == "" { return nil, fmt.Errorf("memberlist: empty Bind address") }
    if opts.Logger == nil { opts.Logger = log.Default() }
    if opts.UpdateTimeout <= 0 { opts.UpdateTimeout = 5 * time.Second }
    meta, err := encodeMeta(opts.Meta)
    if err != nil { return nil, err }
    return &impl{
        opts:     opts,
        delegate: &metaDelegate{meta: meta},
        evts:     make(chan base.Event, 64),
    }, nil
}

func (m *impl) Start(ctx context.Context) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.ml != nil { return nil }
    if m.closed { return fmt.Errorf("memberlist: stopped") }

    cfg := memberlist.DefaultLANConfig()
    cfg.Name = m.opts.NodeID
    host, port, err := splitHostPort(m.opts.Bind)
    if err != nil { return fmt.Errorf("memberlist: invalid bind address %q: %w", m.opts.Bind, err) }
    cfg.BindAddr, cfg.BindPort = host, port
    if m.opts.Advertise != "" {
        ahost, aport, err := splitHostPort(m.opts.Advertise)
        if err != nil { return fmt.Errorf("memberlist: invalid advertise address %q: %w", m.opts.Advertise, err) }
        cfg.AdvertiseAddr, cfg.AdvertisePort = ahost, aport
    }
    if m.opts.ProbeInterval > 0 { cfg.ProbeInterval = m.opts.ProbeInterval }
    if m.opts.ProbeTimeout > 0 { cfg.ProbeTimeout = m.opts.ProbeTimeout }
    if m.opts.SuspicionMult > 0 { cfg.SuspicionMult = m.opts.SuspicionMult }
    cfg.Logger = m.opts.Logger
    cfg.Events = &eventDelegate{emit: m.emit}
    cfg.Delegate = m.delegate

    ml, err := memberlist.Create(cfg)
    if err != nil { return err }
    m.ml = ml

    go func() {
        <-ctx.Done()
        _ = m.Stop()
    }()
    return nil
}

func (m *impl) Join(seeds []string) error {
    ml := m.list()
    if ml == nil { return ErrNotStarted }
    if len(seeds) == 0 { return nil }
    _, err := ml.Join(seeds)
    return err
}

func (m *impl) Local() base.MemberInfo {
    ml := m.list()
    if ml == nil { return base.MemberInfo{} }
    return toMember(ml.LocalNode())
}

func (m *impl) Members() []base.MemberInfo {
    ml := m.list()
    if ml == nil { return nil }
    nodes := ml.Members()
    out := make([]base.MemberInfo, 0, len(nodes))
    for _, n := range nodes { out = append(out, toMember(n)) }
    return out
}

// UpdateMeta stores meta for the next alive message and pushes it to peers.
// Metadata that does not fit memberlist's limit is rejected.
func (m *impl) UpdateMeta(meta map[string]string) error {
    b, err := encodeMeta(meta)
    if err != nil { return err }
    m.delegate.set(b)
    ml := m.list()
    if ml == nil { return nil }
    return ml.UpdateNode(m.opts.UpdateTimeout)
}

func (m *impl) Events() <-chan base.Event { return m.evts }

func (m *impl) Leave() error {
    ml := m.list()
    if ml == nil { return nil }
    // best-effort: give the leave message a second to spread
    _ = ml.Leave(time.Second)
    return nil
}

func (m *impl) Stop() error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.closed { return nil }
    m.closed = true
    if m.ml != nil {
        _ = m.ml.Shutdown()
        m.ml = nil
    }
    m.evMu.Lock()
    m.evClosed = true
    close(m.evts)
    m.evMu.Unlock()
    return nil
}

// HealthScore exposes memberlist's awareness score; -1 when not running.
func (m *impl) HealthScore() int {
    ml := m.list()
    if ml == nil { return -1 }
    return ml.GetHealthScore()
}

func (m *impl) list() *memberlist.Memberlist {
    m.mu.RLock()
    defer m.mu.RUnlock()
    return m.ml
}

func (m *impl) emit(e base.Event) {
    m.evMu.RLock()
    defer m.evMu.RUnlock()
    if m.evClosed { return }
    select {
    case m.evts <- e:
    default:
        logutil.Warnf(m.opts.Logger, "memberlist: dropping %s event of %s: channel full", e.Type, e.Member.ID)
    }
}

func encodeMeta(meta map[string]string) ([]byte, error) {
    if len(meta) == 0 { return nil, nil }
    b, err := json.Marshal(meta)
    if err != nil { return nil, err }
    if len(b) > memberlist.MetaMaxSize { return nil, fmt.Errorf("%w: %d bytes", ErrMetaTooLarge, len(b)) }
    return b, nil
}

func decodeMeta(b []byte) map[string]string {
    meta := map[string]string{}
    if len(b) > 0 { _ = json.Unmarshal(b, &meta) }
    return meta
}

func toMember(n *memberlist.Node) base.MemberInfo {
    return base.MemberInfo{ID: n.Name, Addr: net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port))), Meta: decodeMeta(n.Meta)}
}

func splitHostPort(addr string) (string, int, error) {
    host, ps, err := net.SplitHostPort(addr)
    if err != nil { return "", 0, err }
    p, err := strconv.Atoi(ps)
    if err != nil || p < 0 || p > 65535 { return "", 0, fmt.Errorf("invalid port: %q", ps) }
    return host, p, nil
}

type eventDelegate struct {
    emit func(e base.Event)
}

func (d *eventDelegate) notify(t base.EventType, n *memberlist.Node) {
    if n == nil { return }
    d.emit(base.Event{Type: t, Member: toMember(n), At: time.Now()})
}

func (d *eventDelegate) NotifyJoin(n *memberlist.Node)   { d.notify(base.EventJoin, n) }
func (d *eventDelegate) NotifyLeave(n *memberlist.Node)  { d.notify(base.EventLeave, n) }
func (d *eventDelegate) NotifyUpdate(n *memberlist.Node) { d.notify(base.EventUpdate, n) }

// metaDelegate serves the local metadata to memberlist.
type metaDelegate struct {
    mu   sync.RWMutex
    meta []byte
}

func (d *metaDelegate) set(b []byte) {
    d.mu.Lock()
    d.meta = b
    d.mu.Unlock()
}

func (d *metaDelegate) NodeMeta(limit int) []byte {
    d.mu.RLock()
    defer d.mu.RUnlock()
    if len(d.meta) > limit { return nil }
    return append([]byte(nil), d.meta...)
}

func (d *metaDelegate) NotifyMsg([]byte)                {}
func (d *metaDelegate) GetBroadcasts(int, int) [][]byte { return nil }
func (d *metaDelegate) LocalState(bool) []byte          { return nil }
func (d *metaDelegate) MergeRemoteState([]byte, bool)   {}
