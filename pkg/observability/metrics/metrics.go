package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    ClusterMembers = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "platform",
        Name:      "members_total",
        Help:      "Current number of known cluster members",
    })

    // Status gauges use the ordinal of the health status: 0 GREEN, 1 YELLOW, 2 RED.
    NodeHealthStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "platform",
        Subsystem: "health",
        Name:      "node_status",
        Help:      "Last observed health status per node (0 green, 1 yellow, 2 red)",
    }, []string{"name", "type"})

    ClusterHealthStatus = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "platform",
        Subsystem: "health",
        Name:      "cluster_status",
        Help:      "Aggregate cluster health status (0 green, 1 yellow, 2 red)",
    })

    HealthRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "platform",
        Subsystem: "health",
        Name:      "requests_total",
        Help:      "Health documents rendered, by mode",
    }, []string{"mode"})

    HealthCheckErrors = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "platform",
        Subsystem: "health",
        Name:      "check_errors_total",
        Help:      "Health checks that failed to produce a result",
    })

    MetaPublishes = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "platform",
        Subsystem: "gossip",
        Name:      "meta_publishes_total",
        Help:      "Local health reports published in member metadata",
    })

    MetaTruncations = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "platform",
        Subsystem: "gossip",
        Name:      "meta_truncations_total",
        Help:      "Health reports whose causes were dropped to fit the metadata limit",
    })

    GRPCConnEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "platform",
        Subsystem: "grpc_conn",
        Name:      "events_total",
        Help:      "Cached management connections dialed, reused or evicted",
    }, []string{"event"})

    GRPCConnActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "platform",
        Subsystem: "grpc_conn",
        Name:      "active",
        Help:      "Number of cached management connections",
    })

    CommandsBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "platform",
        Subsystem: "process",
        Name:      "commands_built_total",
        Help:      "Launch specifications built, by process",
    }, []string{"process"})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(ClusterMembers)
        prometheus.MustRegister(NodeHealthStatus)
        prometheus.MustRegister(ClusterHealthStatus)
        prometheus.MustRegister(HealthRequests)
        prometheus.MustRegister(HealthCheckErrors)
        prometheus.MustRegister(MetaPublishes)
        prometheus.MustRegister(MetaTruncations)
        prometheus.MustRegister(GRPCConnEvents)
        prometheus.MustRegister(GRPCConnActive)
        prometheus.MustRegister(CommandsBuilt)
    })
}
