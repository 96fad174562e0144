package health

import (
    "context"
    "errors"
    "fmt"
)

// ErrNoChecks is returned by a NodeChecker with nothing to check.
var ErrNoChecks = errors.New("health: no node checks")

// NewClusterHealth aggregates node reports. The aggregate status is the
// worst node status; causes name every node that is not GREEN, each
// followed by that node's own causes, in node order and without
// duplicates. No nodes means GREEN.
func NewClusterHealth(nodes []NodeHealth) ClusterHealth {
    sorted := SortNodes(nodes)
    b := NewBuilder()
    for _, n := range sorted {
        b.SetStatus(n.Health.Status)
        if n.Health.Status == Green { continue }
        b.AddCause(fmt.Sprintf("%s node %s is %s", n.Details.Type.label(), n.Details.Name, n.Health.Status))
        for _, c := range n.Health.Causes { b.AddCause(c) }
    }
    return ClusterHealth{Health: b.Build(), Nodes: sorted}
}

// NodeCheck is one aspect of the local node's health.
type NodeCheck interface {
    Check(ctx context.Context) Health
}

// NodeCheckFunc adapts a function to NodeCheck.
type NodeCheckFunc func(ctx context.Context) Health

func (f NodeCheckFunc) Check(ctx context.Context) Health { return f(ctx) }

// NodeChecker combines node checks: worst status, causes concatenated in
// check order. ClusterFunc, when set, supplies the cluster view.
type NodeChecker struct {
    checks      []NodeCheck
    ClusterFunc func(ctx context.Context) (ClusterHealth, error)
}

func NewNodeChecker(checks ...NodeCheck) *NodeChecker {
    return &NodeChecker{checks: append([]NodeCheck(nil), checks...)}
}

func (c *NodeChecker) CheckNode(ctx context.Context) (Health, error) {
    if len(c.checks) == 0 { return Health{}, ErrNoChecks }
    b := NewBuilder()
    for _, chk := range c.checks {
        if err := ctx.Err(); err != nil { return Health{}, err }
        b.Merge(chk.Check(ctx))
    }
    return b.Build(), nil
}

func (c *NodeChecker) CheckCluster(ctx context.Context) (ClusterHealth, error) {
    if c.ClusterFunc == nil { return ClusterHealth{}, errors.New("health: cluster health unavailable on a standalone node") }
    return c.ClusterFunc(ctx)
}
