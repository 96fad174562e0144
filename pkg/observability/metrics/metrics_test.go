package metrics

import (
    "testing"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
    Register()
    Register()
    if err := prometheus.Register(ClusterMembers); err == nil {
        t.Fatalf("expected ClusterMembers to be registered already")
    }
}

func TestCountersAccumulate(t *testing.T) {
    before := testutil.ToFloat64(CommandsBuilt.WithLabelValues("es"))
    CommandsBuilt.WithLabelValues("es").Inc()
    if got := testutil.ToFloat64(CommandsBuilt.WithLabelValues("es")); got != before+1 {
        t.Fatalf("commands built = %v, want %v", got, before+1)
    }
    NodeHealthStatus.WithLabelValues("search-1", "SEARCH").Set(2)
    if got := testutil.ToFloat64(NodeHealthStatus.WithLabelValues("search-1", "SEARCH")); got != 2 {
        t.Fatalf("node status = %v, want 2", got)
    }
}
