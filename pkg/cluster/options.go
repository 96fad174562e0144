package cluster

import (
    "errors"
    "log"
    "time"

    "github.com/amirimatin/go-platform/pkg/discovery"
    "github.com/amirimatin/go-platform/pkg/health"
    "github.com/amirimatin/go-platform/pkg/membership"
    "github.com/amirimatin/go-platform/pkg/transport"
)

// Options carries the components and settings of a node. Instances are
// typically produced by bootstrap.Build.
type Options struct {
    // Details identify this node in health reports. Started is set by
    // Start when zero.
    Details health.NodeDetails
    // Standalone nodes report their own health only; no membership is used.
    Standalone bool
    // Checks make up the local node health.
    Checks []health.NodeCheck

    Logger *log.Logger

    // Membership and Discovery are required unless Standalone.
    Membership membership.Membership
    Discovery  discovery.Discovery

    // Optional management RPC: the server publishes the health document,
    // the client fetches full reports of peers whose gossip copy was cut.
    RPCServer transport.RPCServer
    RPCClient transport.RPCClient

    // PublishInterval is how often the local health is gossiped. Default 5s.
    PublishInterval time.Duration
    // PeerTimeout bounds each call to a peer. Default 2s.
    PeerTimeout time.Duration
}

// Validate checks Options without side effects.
func (o Options) Validate() error {
    if o.Details.Name == "" {
        return errors.New("cluster: empty node name")
    }
    if _, err := health.ParseNodeType(string(o.Details.Type)); err != nil {
        return err
    }
    if len(o.Checks) == 0 {
        return errors.New("cluster: no node checks")
    }
    if o.Logger == nil {
        return errors.New("cluster: nil Logger")
    }
    if o.Standalone { return nil }
    if o.Membership == nil {
        return errors.New("cluster: nil Membership")
    }
    if o.Discovery == nil {
        return errors.New("cluster: nil Discovery")
    }
    return nil
}
