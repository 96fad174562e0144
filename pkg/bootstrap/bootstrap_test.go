package bootstrap

import (
    "context"
    "encoding/json"
    "io"
    "log"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/amirimatin/go-platform/pkg/health"
    "github.com/amirimatin/go-platform/pkg/health/ws"
    "github.com/amirimatin/go-platform/pkg/props"
    httpjson "github.com/amirimatin/go-platform/pkg/transport/httpjson"
)

var quiet = log.New(io.Discard, "", 0)

type fixedStatus string

func (s fixedStatus) ClusterStatus(context.Context) (string, error) { return string(s), nil }

func completed(t *testing.T, m map[string]string) *props.Props {
    t.Helper()
    m[props.PathHome] = t.TempDir()
    p := props.New(m)
    require.NoError(t, props.CompleteDefaults(p))
    return p
}

func TestFromPropsDefaults(t *testing.T) {
    cfg, err := FromProps(completed(t, map[string]string{props.ClusterNodeName: "node-a"}))
    require.NoError(t, err)
    assert.True(t, cfg.Standalone)
    assert.Equal(t, health.NodeApplication, cfg.NodeType)
    assert.Equal(t, "node-a", cfg.NodeName)
    assert.Equal(t, 9003, cfg.NodePort)
    assert.Equal(t, "127.0.0.1:9004", cfg.MgmtAddr)
    assert.Equal(t, "http", cfg.MgmtProto)
    assert.Equal(t, "http://127.0.0.1:9002", cfg.SearchURL)
    assert.False(t, cfg.TLSEnable)
}

func TestFromPropsCluster(t *testing.T) {
    cfg, err := FromProps(completed(t, map[string]string{
        props.ClusterEnabled:  "true",
        props.ClusterNodeType: "search",
        props.ClusterNodeHost: "10.0.0.5",
        props.ClusterNodePort: "9300",
        props.ClusterHosts:    "10.0.0.5,10.0.0.6:9301",
        props.MgmtProto:       "grpc",
        props.SearchHttpPort:  "9200",
    }))
    require.NoError(t, err)
    assert.False(t, cfg.Standalone)
    assert.Equal(t, health.NodeSearch, cfg.NodeType)
    assert.Equal(t, "10.0.0.5", cfg.NodeHost)
    assert.Equal(t, 9300, cfg.NodePort)
    assert.Equal(t, "grpc", cfg.MgmtProto)
    assert.Equal(t, "http://127.0.0.1:9200", cfg.SearchURL)
    assert.Equal(t, []string{"10.0.0.5:9300", "10.0.0.6:9301"}, seeds(cfg).Seeds())
}

func TestFromPropsInvalid(t *testing.T) {
    _, err := FromProps(completed(t, map[string]string{props.ClusterNodeType: "worker"}))
    assert.ErrorIs(t, err, props.ErrInvalidValue)
    _, err = FromProps(completed(t, map[string]string{props.ClusterEnabled: "maybe"}))
    assert.ErrorIs(t, err, props.ErrInvalidValue)
}

func TestBuildRejectsUnknownProtocol(t *testing.T) {
    _, err := Build(Config{NodeName: "n", Standalone: true, MgmtAddr: "127.0.0.1:0", MgmtProto: "smtp", StatusSource: fixedStatus("green"), Logger: quiet})
    assert.ErrorIs(t, err, props.ErrInvalidValue)
}

func TestRunStandaloneServesHealth(t *testing.T) {
    for _, proto := range []string{"http", "grpc"} {
        t.Run(proto, func(t *testing.T) {
            ctx, cancel := context.WithCancel(context.Background())
            defer cancel()
            n, err := Run(ctx, Config{
                NodeName:     "solo",
                NodeHost:     "127.0.0.1",
                Standalone:   true,
                MgmtAddr:     "127.0.0.1:0",
                MgmtProto:    proto,
                StatusSource: fixedStatus("yellow"),
                Logger:       quiet,
            })
            require.NoError(t, err)
            defer n.Close()

            resp, err := n.Health(ctx)
            require.NoError(t, err)
            assert.Equal(t, "YELLOW", resp.Health)
            require.Len(t, resp.Causes, 1)
            assert.Equal(t, "Elasticsearch status is YELLOW", resp.Causes[0].Message)
        })
    }
}

func TestRunStandaloneOverHTTP(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    n, err := Build(Config{NodeName: "solo", Standalone: true, MgmtAddr: "127.0.0.1:0", StatusSource: fixedStatus("green"), Logger: quiet})
    require.NoError(t, err)
    require.NoError(t, n.Start(ctx))
    defer n.Close()

    b, err := httpjson.NewClient(time.Second).GetHealth(ctx, n.ManagementAddr())
    require.NoError(t, err)
    var doc ws.HealthResponse
    require.NoError(t, json.Unmarshal(b, &doc))
    assert.Equal(t, "GREEN", doc.Health)
    assert.Empty(t, doc.Causes)
    assert.Nil(t, doc.Nodes)
}
