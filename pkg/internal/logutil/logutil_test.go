package logutil

import (
    "bytes"
    "encoding/json"
    "log"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestTextMode(t *testing.T) {
    SetJSON(false)
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)

    Warnf(l, "disk at %d%%", 91)

    assert.Equal(t, "WARN disk at 91%\n", buf.String())
}

func TestJSONMode(t *testing.T) {
    SetJSON(true)
    defer SetJSON(false)
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)

    Errorf(l, "boom: %s", "x")

    lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
    require.Len(t, lines, 1)
    var evt map[string]any
    require.NoError(t, json.Unmarshal([]byte(lines[0]), &evt))
    assert.Equal(t, "error", evt["level"])
    assert.Equal(t, "boom: x", evt["message"])
    assert.Contains(t, evt, "time")
}
