// Package props is the configuration source of the platform: string
// key/value settings loaded from platform.properties, completed with
// documented defaults and exposed through typed getters.
package props

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strconv"
    "strings"

    "github.com/magiconair/properties"
)

var (
    ErrMissingProperty = errors.New("props: missing property")
    ErrInvalidValue    = errors.New("props: invalid value")
)

// Props holds resolved settings. It is filled during startup and read-only
// afterwards; concurrent readers are safe once mutation has stopped.
type Props struct {
    m map[string]string
}

// New copies the given settings. Values are trimmed.
func New(m map[string]string) *Props {
    p := &Props{m: make(map[string]string, len(m))}
    for k, v := range m { p.m[k] = strings.TrimSpace(v) }
    return p
}

// Load reads a java properties file. ${key} references are kept as
// written.
func Load(path string) (*Props, error) {
    l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
    pp, err := l.LoadFile(path)
    if err != nil { return nil, fmt.Errorf("props: read %s: %w", path, err) }
    return New(pp.Map()), nil
}

// WriteFile stores m as a java properties file, keys in lexical order.
// Parent directories are created.
func WriteFile(path string, m map[string]string) error {
    keys := make([]string, 0, len(m))
    for k := range m { keys = append(keys, k) }
    sort.Strings(keys)
    pp := properties.NewProperties()
    pp.DisableExpansion = true
    for _, k := range keys {
        if _, _, err := pp.Set(k, m[k]); err != nil { return fmt.Errorf("props: %s: %w", k, err) }
    }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { return err }
    f, err := os.Create(path)
    if err != nil { return fmt.Errorf("props: write %s: %w", path, err) }
    if _, err := pp.Write(f, properties.UTF8); err != nil {
        f.Close()
        return fmt.Errorf("props: write %s: %w", path, err)
    }
    return f.Close()
}

// Contains reports whether key has a non-empty value.
func (p *Props) Contains(key string) bool { return p.m[key] != "" }

// Value returns the value of key or "" when unset.
func (p *Props) Value(key string) string { return p.m[key] }

// ValueOr returns the value of key or def when unset.
func (p *Props) ValueOr(key, def string) string {
    if v := p.m[key]; v != "" { return v }
    return def
}

// NonNullValue returns the value of key, failing when it is unset.
func (p *Props) NonNullValue(key string) (string, error) {
    v := p.m[key]
    if v == "" { return "", fmt.Errorf("%w: %s", ErrMissingProperty, key) }
    return v, nil
}

// Int parses key as an integer, returning def when unset.
func (p *Props) Int(key string, def int) (int, error) {
    v := p.m[key]
    if v == "" { return def, nil }
    i, err := strconv.Atoi(v)
    if err != nil { return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, key, v) }
    return i, nil
}

// Bool parses key as a boolean, returning def when unset.
func (p *Props) Bool(key string, def bool) (bool, error) {
    v := p.m[key]
    if v == "" { return def, nil }
    b, err := strconv.ParseBool(v)
    if err != nil { return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, key, v) }
    return b, nil
}

// Path returns the value of key as an absolute, cleaned path.
func (p *Props) Path(key string) (string, error) {
    v, err := p.NonNullValue(key)
    if err != nil { return "", err }
    abs, err := filepath.Abs(v)
    if err != nil { return "", fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, v, err) }
    return abs, nil
}

// Set overrides key. An empty value removes it.
func (p *Props) Set(key, value string) {
    value = strings.TrimSpace(value)
    if value == "" { delete(p.m, key); return }
    p.m[key] = value
}

// SetDefault sets key only when it is unset or empty.
func (p *Props) SetDefault(key, value string) {
    if p.m[key] == "" { p.m[key] = value }
}

// Raw returns a copy of every setting.
func (p *Props) Raw() map[string]string {
    out := make(map[string]string, len(p.m))
    for k, v := range p.m { out[k] = v }
    return out
}

// Keys returns the setting names in lexical order.
func (p *Props) Keys() []string {
    out := make([]string, 0, len(p.m))
    for k := range p.m { out = append(out, k) }
    sort.Strings(out)
    return out
}

// CompleteDefaults fills every documented default that is not set, makes
// platform.path.home absolute and resolves the other path settings against
// it. The cluster node name falls back to the host name.
func CompleteDefaults(p *Props) error {
    home, err := p.Path(PathHome)
    if err != nil { return err }
    p.m[PathHome] = home
    for k, v := range defaults { p.SetDefault(k, v) }
    for _, k := range pathKeys {
        v := p.m[k]
        if !filepath.IsAbs(v) { v = filepath.Join(home, v) }
        p.m[k] = filepath.Clean(v)
    }
    if !p.Contains(ClusterNodeName) {
        if h, err := os.Hostname(); err == nil { p.m[ClusterNodeName] = h }
    }
    return nil
}
