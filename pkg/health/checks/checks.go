// Package checks holds the node checks run by a platform node.
package checks

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "github.com/avast/retry-go/v4"

    "github.com/amirimatin/go-platform/pkg/health"
    "github.com/amirimatin/go-platform/pkg/membership"
)

// ClusterStatusSource reports the search engine cluster status
// ("green", "yellow" or "red").
type ClusterStatusSource interface {
    ClusterStatus(ctx context.Context) (string, error)
}

// EsStatus maps the search engine cluster status to the node health. An
// unreachable search engine is RED.
type EsStatus struct {
    Source ClusterStatusSource
}

func (c EsStatus) Check(ctx context.Context) health.Health {
    raw, err := c.Source.ClusterStatus(ctx)
    if err != nil {
        return health.New(health.Red, "Elasticsearch status is RED (unavailable)")
    }
    st, err := health.ParseStatus(raw)
    if err != nil {
        return health.New(health.Red, fmt.Sprintf("Elasticsearch status is unknown (%s)", raw))
    }
    if st == health.Green { return health.GreenHealth }
    return health.New(st, fmt.Sprintf("Elasticsearch status is %s", st))
}

// HTTPStatusSource reads /_cluster/health from the search engine HTTP port.
type HTTPStatusSource struct {
    BaseURL  string
    Client   *http.Client
    Attempts uint
}

func NewHTTPStatusSource(baseURL string) *HTTPStatusSource {
    return &HTTPStatusSource{BaseURL: baseURL, Client: &http.Client{Timeout: 3 * time.Second}, Attempts: 3}
}

func (s *HTTPStatusSource) ClusterStatus(ctx context.Context) (string, error) {
    var out struct {
        Status string `json:"status"`
    }
    err := retry.Do(func() error {
        req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/_cluster/health", nil)
        if err != nil { return retry.Unrecoverable(err) }
        resp, err := s.Client.Do(req)
        if err != nil { return err }
        defer resp.Body.Close()
        if resp.StatusCode != http.StatusOK { return fmt.Errorf("search engine health: %s", resp.Status) }
        return json.NewDecoder(resp.Body).Decode(&out)
    },
        retry.Context(ctx),
        retry.Attempts(s.Attempts),
        retry.Delay(100*time.Millisecond),
        retry.DelayType(retry.BackOffDelay),
        retry.LastErrorOnly(true),
    )
    if err != nil { return "", err }
    return out.Status, nil
}

// Gossip turns the membership awareness score into a node health: a
// positive score means the node has trouble reaching its peers.
type Gossip struct {
    Reporter membership.HealthReporter
}

func (c Gossip) Check(context.Context) health.Health {
    switch score := c.Reporter.HealthScore(); {
    case score < 0:
        return health.New(health.Red, "Cluster membership is not started")
    case score > 0:
        return health.New(health.Yellow, fmt.Sprintf("Cluster membership is degraded (awareness score %d)", score))
    default:
        return health.GreenHealth
    }
}
