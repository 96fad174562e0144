package health

import (
    "context"
    "errors"
    "math/rand"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func node(t NodeType, name, host string, port int, h Health) NodeHealth {
    return NodeHealth{Health: h, Details: NodeDetails{Type: t, Name: name, Host: host, Port: port, Started: 1}}
}

func TestStatusOrderAndText(t *testing.T) {
    assert.True(t, Green < Yellow && Yellow < Red)
    assert.Equal(t, Red, Worst(Yellow, Red))
    assert.Equal(t, Yellow, Worst(Yellow, Green))

    b, err := Red.MarshalText()
    require.NoError(t, err)
    assert.Equal(t, "RED", string(b))

    var s Status
    require.NoError(t, s.UnmarshalText([]byte("yellow")))
    assert.Equal(t, Yellow, s)
    assert.Error(t, s.UnmarshalText([]byte("blue")))
}

func TestBuilderKeepsWorstAndDeduplicates(t *testing.T) {
    h := NewBuilder().
        SetStatus(Red).
        SetStatus(Yellow).
        AddCause("a").
        AddCause("").
        Merge(New(Yellow, "b", "a")).
        Build()
    assert.Equal(t, Red, h.Status)
    assert.Equal(t, []string{"a", "b"}, h.Causes)
}

func TestSortNodes(t *testing.T) {
    want := []NodeHealth{
        node(NodeApplication, "a", "10.0.0.1", 9000, GreenHealth),
        node(NodeApplication, "a", "10.0.0.1", 9001, GreenHealth),
        node(NodeApplication, "a", "10.0.0.2", 80, GreenHealth),
        node(NodeApplication, "b", "10.0.0.0", 1, GreenHealth),
        node(NodeSearch, "a", "10.0.0.0", 1, GreenHealth),
    }
    r := rand.New(rand.NewSource(7))
    for i := 0; i < 20; i++ {
        in := append([]NodeHealth(nil), want...)
        r.Shuffle(len(in), func(i, j int) { in[i], in[j] = in[j], in[i] })
        assert.Equal(t, want, SortNodes(in))
    }
}

func TestSortNodesComparesPortsNumerically(t *testing.T) {
    in := []NodeHealth{
        node(NodeSearch, "s", "h", 10000, GreenHealth),
        node(NodeSearch, "s", "h", 9, GreenHealth),
    }
    out := SortNodes(in)
    assert.Equal(t, 9, out[0].Details.Port)
    assert.Equal(t, 10000, in[0].Details.Port, "input must not be reordered")
}

func TestNewClusterHealth(t *testing.T) {
    ch := NewClusterHealth([]NodeHealth{
        node(NodeSearch, "search-1", "h", 1, New(Red, "disk full")),
        node(NodeApplication, "app-2", "h", 1, GreenHealth),
        node(NodeApplication, "app-1", "h", 1, New(Yellow, "disk full", "slow")),
    })
    assert.Equal(t, Red, ch.Health.Status)
    assert.Equal(t, []string{
        "Application node app-1 is YELLOW",
        "disk full",
        "slow",
        "Search node search-1 is RED",
    }, ch.Health.Causes)
    require.Len(t, ch.Nodes, 3)
    assert.Equal(t, "app-1", ch.Nodes[0].Details.Name)

    for _, n := range ch.Nodes {
        assert.GreaterOrEqual(t, ch.Health.Status, n.Health.Status)
    }
}

func TestNewClusterHealthEmpty(t *testing.T) {
    ch := NewClusterHealth(nil)
    assert.Equal(t, Green, ch.Health.Status)
    assert.Empty(t, ch.Health.Causes)
    assert.Empty(t, ch.Nodes)
}

func TestNodeChecker(t *testing.T) {
    c := NewNodeChecker(
        NodeCheckFunc(func(context.Context) Health { return New(Yellow, "gossip degraded") }),
        NodeCheckFunc(func(context.Context) Health { return GreenHealth }),
        NodeCheckFunc(func(context.Context) Health { return New(Red, "search engine is RED") }),
    )
    h, err := c.CheckNode(context.Background())
    require.NoError(t, err)
    assert.Equal(t, New(Red, "gossip degraded", "search engine is RED"), h)

    _, err = c.CheckCluster(context.Background())
    assert.Error(t, err)

    want := errors.New("boom")
    c.ClusterFunc = func(context.Context) (ClusterHealth, error) { return ClusterHealth{}, want }
    _, err = c.CheckCluster(context.Background())
    assert.Equal(t, want, err)

    _, err = NewNodeChecker().CheckNode(context.Background())
    assert.ErrorIs(t, err, ErrNoChecks)
}

func TestNodeHealthCodec(t *testing.T) {
    n := node(NodeApplication, "app-1", "10.0.0.1", 9003, New(Yellow, "x"))
    b, err := EncodeNodeHealth(n)
    require.NoError(t, err)
    got, err := DecodeNodeHealth(b)
    require.NoError(t, err)
    assert.True(t, n.Equal(got))

    _, err = DecodeNodeHealth([]byte("{"))
    assert.Error(t, err)
}

func TestParseNodeType(t *testing.T) {
    nt, err := ParseNodeType("application")
    require.NoError(t, err)
    assert.Equal(t, NodeApplication, nt)
    _, err = ParseNodeType("compute")
    assert.Error(t, err)
}
