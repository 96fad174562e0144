// Package ws renders the system health document served at
// api/system/health.
package ws

import (
    "context"
    "strconv"
    "time"

    "github.com/amirimatin/go-platform/pkg/health"
    obsmetrics "github.com/amirimatin/go-platform/pkg/observability/metrics"
    "github.com/amirimatin/go-platform/pkg/observability/tracing"
)

// DateTimeLayout formats node start times.
const DateTimeLayout = "2006-01-02T15:04:05-0700"

// Topology tells the action which document to render.
type Topology interface {
    IsStandalone() bool
}

// TopologyFunc adapts a function to Topology.
type TopologyFunc func() bool

func (f TopologyFunc) IsStandalone() bool { return f() }

// Standalone is the topology of a node running outside a cluster.
var Standalone Topology = TopologyFunc(func() bool { return true })

type Cause struct {
    Message string `json:"message"`
}

type Node struct {
    Name    string  `json:"name"`
    Type    string  `json:"type"`
    Host    string  `json:"host"`
    Port    string  `json:"port"`
    Started string  `json:"started"`
    Health  string  `json:"health"`
    Causes  []Cause `json:"causes"`
}

// NodeList is a pointer in HealthResponse so that an empty cluster still
// renders "nodes": [] while a standalone document has no nodes field.
type NodeList []Node

type HealthResponse struct {
    Health string    `json:"health"`
    Causes []Cause   `json:"causes"`
    Nodes  *NodeList `json:"nodes,omitempty"`
}

// HealthAction builds the health document. It is stateless and safe for
// concurrent use.
type HealthAction struct {
    topology Topology
    checker  health.Checker
    location *time.Location
}

func NewHealthAction(topology Topology, checker health.Checker) *HealthAction {
    return &HealthAction{topology: topology, checker: checker, location: time.Local}
}

// WithLocation sets the time zone used to format start times.
func (a *HealthAction) WithLocation(loc *time.Location) *HealthAction {
    a.location = loc
    return a
}

// Handle renders the node health when standalone and the cluster health
// with sorted nodes otherwise. Checker errors are returned as is.
func (a *HealthAction) Handle(ctx context.Context) (*HealthResponse, error) {
    if a.topology.IsStandalone() {
        ctx, end := tracing.StartSpan(ctx, "health.node")
        defer end()
        h, err := a.checker.CheckNode(ctx)
        if err != nil { return nil, err }
        obsmetrics.HealthRequests.WithLabelValues("standalone").Inc()
        return &HealthResponse{Health: h.Status.String(), Causes: causes(h.Causes)}, nil
    }

    ctx, end := tracing.StartSpan(ctx, "health.cluster")
    defer end()
    ch, err := a.checker.CheckCluster(ctx)
    if err != nil { return nil, err }
    obsmetrics.HealthRequests.WithLabelValues("cluster").Inc()
    nodes := make(NodeList, 0, len(ch.Nodes))
    for _, n := range health.SortNodes(ch.Nodes) { nodes = append(nodes, a.node(n)) }
    return &HealthResponse{Health: ch.Health.Status.String(), Causes: causes(ch.Health.Causes), Nodes: &nodes}, nil
}

func (a *HealthAction) node(n health.NodeHealth) Node {
    d := n.Details
    return Node{
        Name:    d.Name,
        Type:    string(d.Type),
        Host:    d.Host,
        Port:    strconv.Itoa(d.Port),
        Started: FormatDateTime(d.Started, a.location),
        Health:  n.Health.Status.String(),
        Causes:  causes(n.Health.Causes),
    }
}

// FormatDateTime renders epoch milliseconds in loc.
func FormatDateTime(millis int64, loc *time.Location) string {
    if loc == nil { loc = time.Local }
    return time.UnixMilli(millis).In(loc).Format(DateTimeLayout)
}

func causes(in []string) []Cause {
    out := make([]Cause, 0, len(in))
    for _, c := range in { out = append(out, Cause{Message: c}) }
    return out
}
