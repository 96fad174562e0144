package httpjson

import (
    "context"
    "crypto/tls"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/avast/retry-go/v4"

    "github.com/amirimatin/go-platform/pkg/transport"
)

// Client is a thin HTTP client for the management API with optional TLS
// and retry with exponential backoff.
type Client struct {
    httpc     *http.Client
    transport *http.Transport
    isTLS     bool
    attempts  uint
}

// NewClient constructs a Client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = 3 * time.Second }
    tr := &http.Transport{}
    return &Client{httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr, attempts: 3}
}

// UseTLS sets the TLS config of the underlying transport and switches the
// scheme to https.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    c.transport.TLSClientConfig = cfg
    c.isTLS = cfg != nil
    return c
}

// WithAttempts sets how many times a request is tried; at least once.
func (c *Client) WithAttempts(n uint) *Client {
    if n == 0 { n = 1 }
    c.attempts = n
    return c
}

func (c *Client) GetHealth(ctx context.Context, addr string) ([]byte, error) {
    return c.get(ctx, addr, transport.PathHealth)
}

func (c *Client) GetNodeHealth(ctx context.Context, addr string) ([]byte, error) {
    return c.get(ctx, addr, transport.PathNodeHealth)
}

func (c *Client) url(addr, path string) string {
    if strings.Contains(addr, "://") { return strings.TrimSuffix(addr, "/") + path }
    scheme := "http"
    if c.isTLS { scheme = "https" }
    return fmt.Sprintf("%s://%s%s", scheme, addr, path)
}

func (c *Client) get(ctx context.Context, addr, path string) ([]byte, error) {
    var body []byte
    err := retry.Do(func() error {
        req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(addr, path), nil)
        if err != nil { return retry.Unrecoverable(err) }
        resp, err := c.httpc.Do(req)
        if err != nil { return err }
        defer resp.Body.Close()
        b, err := io.ReadAll(resp.Body)
        if err != nil { return err }
        switch {
        case resp.StatusCode == http.StatusOK:
            body = b
            return nil
        case resp.StatusCode >= 500:
            return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
        default:
            return retry.Unrecoverable(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))))
        }
    },
        retry.Context(ctx),
        retry.Attempts(c.attempts),
        retry.Delay(100*time.Millisecond),
        retry.DelayType(retry.BackOffDelay),
        retry.LastErrorOnly(true),
    )
    if err != nil { return nil, err }
    return body, nil
}

var _ transport.RPCClient = (*Client)(nil)
