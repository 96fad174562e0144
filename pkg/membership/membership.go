package membership

import (
    "context"
    "time"
)

// Metadata keys published by platform nodes.
const (
    MetaHealth = "health" // encoded health.NodeHealth
    MetaMgmt   = "mgmt"   // management address
    // MetaHealthTruncated is "true" when the published health lost its
    // causes to fit the gossip size limit.
    MetaHealthTruncated = "health_truncated"
)

// MemberInfo describes a cluster member as seen through gossip. Meta holds
// what the member published about itself.
type MemberInfo struct {
    ID   string
    Addr string
    Meta map[string]string
}

type EventType string

const (
    EventJoin   EventType = "join"
    EventLeave  EventType = "leave"
    // EventUpdate means the member published new metadata.
    EventUpdate EventType = "update"
)

// Event is a membership change notification.
type Event struct {
    Type   EventType
    Member MemberInfo
    At     time.Time
}

// Membership is the gossip layer: peer discovery, join/leave, metadata
// propagation and event delivery.
type Membership interface {
    Start(ctx context.Context) error
    Join(seeds []string) error
    Local() MemberInfo
    Members() []MemberInfo
    // UpdateMeta replaces the local metadata and gossips it to peers.
    UpdateMeta(meta map[string]string) error
    Events() <-chan Event
    Leave() error
    Stop() error
}
