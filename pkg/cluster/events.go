package cluster

import (
    "context"
    "sync"
    "time"

    "github.com/amirimatin/go-platform/pkg/health"
    "github.com/amirimatin/go-platform/pkg/membership"
)

type EventType string

const (
    EventMemberJoin    EventType = "member_join"
    EventMemberLeave   EventType = "member_leave"
    // EventHealthChanged is published when the status a member reports
    // changes, including the local node.
    EventHealthChanged EventType = "health_changed"
)

// Event describes a change observed by the node. Only the fields relevant
// to the type are set.
type Event struct {
    Type   EventType
    At     time.Time
    Member *membership.MemberInfo
    Health *health.NodeHealth
}

// Subscribe returns a buffered channel of events, closed when ctx is done.
// Delivery is best-effort: events are dropped for slow consumers.
func (n *Node) Subscribe(ctx context.Context) <-chan Event {
    ch := make(chan Event, 64)
    n.eb.add(ch)
    go func() {
        <-ctx.Done()
        n.eb.remove(ch)
    }()
    return ch
}

type eventBus struct {
    mu   sync.Mutex
    subs map[chan Event]struct{}
}

func (e *eventBus) add(ch chan Event) {
    e.mu.Lock()
    if e.subs == nil { e.subs = make(map[chan Event]struct{}) }
    e.subs[ch] = struct{}{}
    e.mu.Unlock()
}

// remove unsubscribes and closes ch; publish never sends on a closed channel
// since both hold mu.
func (e *eventBus) remove(ch chan Event) {
    e.mu.Lock()
    if _, ok := e.subs[ch]; ok {
        delete(e.subs, ch)
        close(ch)
    }
    e.mu.Unlock()
}

func (e *eventBus) publish(ev Event) {
    e.mu.Lock()
    for ch := range e.subs {
        select {
        case ch <- ev:
        default:
        }
    }
    e.mu.Unlock()
}
