package tracing

import (
    "bytes"
    "context"
    "strings"
    "testing"
)

func TestStartSpanDisabledIsNoop(t *testing.T) {
    ctx := context.Background()
    got, end := StartSpan(ctx, "noop")
    end()
    if got != ctx { t.Fatalf("disabled tracing must return the same context") }
}

func TestSpansAreExported(t *testing.T) {
    var buf bytes.Buffer
    shutdown, err := SetupWriter(true, &buf)
    if err != nil { t.Fatalf("setup: %v", err) }
    _, end := StartSpan(context.Background(), "health.cluster", "node", "app-1")
    end()
    if err := shutdown(context.Background()); err != nil { t.Fatalf("shutdown: %v", err) }
    out := buf.String()
    if !strings.Contains(out, "health.cluster") || !strings.Contains(out, "app-1") {
        t.Fatalf("span not exported: %s", out)
    }
}
