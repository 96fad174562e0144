package static

import (
    "net"
    "strconv"
    "strings"

    "github.com/amirimatin/go-platform/pkg/discovery"
)

type staticSeeds struct {
    seeds []string
}

func (s *staticSeeds) Seeds() []string { return append([]string(nil), s.seeds...) }

// New returns a Discovery over a fixed seed list. Blank entries are dropped.
func New(seeds ...string) discovery.Discovery {
    cleaned := make([]string, 0, len(seeds))
    for _, v := range seeds {
        if v = strings.TrimSpace(v); v != "" { cleaned = append(cleaned, v) }
    }
    return &staticSeeds{seeds: cleaned}
}

// Parse splits a comma-separated host list, as found in
// platform.cluster.hosts, trimming blanks.
func Parse(csv string) []string {
    if csv == "" { return nil }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        if p = strings.TrimSpace(p); p != "" { out = append(out, p) }
    }
    return out
}

// WithPort appends port to every host that does not carry one.
func WithPort(hosts []string, port int) []string {
    out := make([]string, 0, len(hosts))
    p := strconv.Itoa(port)
    for _, h := range hosts {
        if _, _, err := net.SplitHostPort(h); err == nil {
            out = append(out, h)
            continue
        }
        out = append(out, net.JoinHostPort(strings.Trim(h, "[]"), p))
    }
    return out
}
