// Package health models node and cluster health: a three level status,
// the causes explaining it and the details identifying each node.
package health

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"
)

// Status is ordered: GREEN < YELLOW < RED.
type Status int

const (
    Green Status = iota
    Yellow
    Red
)

func (s Status) String() string {
    switch s {
    case Green:
        return "GREEN"
    case Yellow:
        return "YELLOW"
    case Red:
        return "RED"
    default:
        return fmt.Sprintf("Status(%d)", int(s))
    }
}

// ParseStatus accepts the status names in any case.
func ParseStatus(s string) (Status, error) {
    switch strings.ToUpper(strings.TrimSpace(s)) {
    case "GREEN":
        return Green, nil
    case "YELLOW":
        return Yellow, nil
    case "RED":
        return Red, nil
    }
    return Green, fmt.Errorf("health: unknown status %q", s)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
    v, err := ParseStatus(string(b))
    if err != nil { return err }
    *s = v
    return nil
}

// Worst returns the more severe of a and b.
func Worst(a, b Status) Status {
    if b > a { return b }
    return a
}

// Health is a status and the ordered causes explaining it. A GREEN health
// normally has no causes.
type Health struct {
    Status Status   `json:"status"`
    Causes []string `json:"causes,omitempty"`
}

// GreenHealth is the healthy value with no causes.
var GreenHealth = Health{Status: Green}

// New builds a health with the given status and causes.
func New(status Status, causes ...string) Health {
    return Health{Status: status, Causes: append([]string(nil), causes...)}
}

// Builder accumulates causes and keeps the worst status seen.
type Builder struct {
    status Status
    causes []string
    seen   map[string]struct{}
}

func NewBuilder() *Builder { return &Builder{seen: map[string]struct{}{}} }

// SetStatus raises the status; it never lowers it.
func (b *Builder) SetStatus(s Status) *Builder {
    b.status = Worst(b.status, s)
    return b
}

// AddCause appends c unless it was already added. Empty causes are ignored.
func (b *Builder) AddCause(c string) *Builder {
    if c == "" { return b }
    if _, ok := b.seen[c]; ok { return b }
    b.seen[c] = struct{}{}
    b.causes = append(b.causes, c)
    return b
}

// Merge folds h into the builder.
func (b *Builder) Merge(h Health) *Builder {
    b.SetStatus(h.Status)
    for _, c := range h.Causes { b.AddCause(c) }
    return b
}

func (b *Builder) Build() Health {
    return Health{Status: b.status, Causes: append([]string(nil), b.causes...)}
}

// NodeType is the role of a node in the cluster.
type NodeType string

const (
    NodeApplication NodeType = "APPLICATION"
    NodeSearch      NodeType = "SEARCH"
)

// ParseNodeType accepts the type names in any case.
func ParseNodeType(s string) (NodeType, error) {
    switch t := NodeType(strings.ToUpper(strings.TrimSpace(s))); t {
    case NodeApplication, NodeSearch:
        return t, nil
    }
    return "", fmt.Errorf("health: unknown node type %q", s)
}

// label is the type as written in sentences: "Application", "Search".
func (t NodeType) label() string {
    s := string(t)
    if s == "" { return s }
    return s[:1] + strings.ToLower(s[1:])
}

// NodeDetails identifies a node. Started is epoch milliseconds.
type NodeDetails struct {
    Type    NodeType `json:"type"`
    Name    string   `json:"name"`
    Host    string   `json:"host"`
    Port    int      `json:"port"`
    Started int64    `json:"started"`
}

// NodeHealth is the health of one node together with its details. Two
// values are equal when every field is equal.
type NodeHealth struct {
    Health  Health      `json:"health"`
    Details NodeDetails `json:"details"`
}

func (n NodeHealth) Equal(o NodeHealth) bool {
    if n.Health.Status != o.Health.Status || n.Details != o.Details { return false }
    if len(n.Health.Causes) != len(o.Health.Causes) { return false }
    for i := range n.Health.Causes {
        if n.Health.Causes[i] != o.Health.Causes[i] { return false }
    }
    return true
}

// EncodeNodeHealth is the compact form shared with peers.
func EncodeNodeHealth(n NodeHealth) ([]byte, error) { return json.Marshal(n) }

func DecodeNodeHealth(b []byte) (NodeHealth, error) {
    var n NodeHealth
    if err := json.Unmarshal(b, &n); err != nil { return NodeHealth{}, fmt.Errorf("health: decode node health: %w", err) }
    return n, nil
}

// ClusterHealth is the aggregate health of a cluster and the health of each
// node it was computed from.
type ClusterHealth struct {
    Health Health
    Nodes  []NodeHealth
}

// Checker produces health results for the health action.
type Checker interface {
    CheckNode(ctx context.Context) (Health, error)
    CheckCluster(ctx context.Context) (ClusterHealth, error)
}
