package checks

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/amirimatin/go-platform/pkg/health"
)

type staticSource struct {
    status string
    err    error
}

func (s staticSource) ClusterStatus(context.Context) (string, error) { return s.status, s.err }

func TestEsStatus(t *testing.T) {
    cases := []struct {
        src  staticSource
        want health.Health
    }{
        {staticSource{status: "green"}, health.GreenHealth},
        {staticSource{status: "yellow"}, health.New(health.Yellow, "Elasticsearch status is YELLOW")},
        {staticSource{status: "red"}, health.New(health.Red, "Elasticsearch status is RED")},
        {staticSource{err: errors.New("refused")}, health.New(health.Red, "Elasticsearch status is RED (unavailable)")},
        {staticSource{status: "purple"}, health.New(health.Red, "Elasticsearch status is unknown (purple)")},
    }
    for _, c := range cases {
        assert.Equal(t, c.want, EsStatus{Source: c.src}.Check(context.Background()))
    }
}

func TestHTTPStatusSourceRetries(t *testing.T) {
    var calls atomic.Int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "/_cluster/health", r.URL.Path)
        if calls.Add(1) == 1 {
            w.WriteHeader(http.StatusServiceUnavailable)
            return
        }
        fmt.Fprint(w, `{"cluster_name":"platform","status":"yellow"}`)
    }))
    defer srv.Close()

    st, err := NewHTTPStatusSource(srv.URL).ClusterStatus(context.Background())
    require.NoError(t, err)
    assert.Equal(t, "yellow", st)
    assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPStatusSourceGivesUp(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusInternalServerError)
    }))
    defer srv.Close()

    s := NewHTTPStatusSource(srv.URL)
    s.Attempts = 2
    _, err := s.ClusterStatus(context.Background())
    assert.Error(t, err)
}

type score int

func (s score) HealthScore() int { return int(s) }

func TestGossip(t *testing.T) {
    assert.Equal(t, health.GreenHealth, Gossip{Reporter: score(0)}.Check(context.Background()))
    assert.Equal(t, health.Yellow, Gossip{Reporter: score(3)}.Check(context.Background()).Status)
    assert.Equal(t, health.Red, Gossip{Reporter: score(-1)}.Check(context.Background()).Status)
}
