// Package httpprobe fetches URLs to find out whether they are publicly
// reachable. It is the HTTP collaborator of the exposure check.
package httpprobe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/magerun-tools/syscheck/internal/telemetry"
)

// Prober sends a request to a URL and reports the response status. The
// option fields must be set before the first Probe; one HTTP client is
// built from them and reused for every probe.
type Prober struct {
	// Method is the HTTP method used. Default POST.
	Method string
	// InsecureSkipVerify disables TLS certificate checks, for stores
	// with self-signed certificates.
	InsecureSkipVerify bool
	// UserAgent is sent with every request when set.
	UserAgent string

	once      sync.Once
	transport *http.Transport
	client    *http.Client
}

// New returns a Prober using POST.
func New() *Prober {
	return &Prober{Method: http.MethodPost}
}

func (p *Prober) httpClient() *http.Client {
	p.once.Do(func() {
		p.transport = http.DefaultTransport.(*http.Transport).Clone()
		if p.InsecureSkipVerify {
			p.transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed stores
		}
		p.client = &http.Client{Transport: p.transport}
	})
	return p.client
}

// Probe requests url and returns the final HTTP status code after
// redirects. A zero status with a non-nil error means no response was
// received, e.g. on timeout or connection refusal. timeout bounds the
// whole exchange including redirects.
func (p *Prober) Probe(ctx context.Context, url string, timeout time.Duration) (status int, err error) {
	defer func() { telemetry.RecordProbe(ctx, url, status, err) }()

	method := p.Method
	if method == "" {
		method = http.MethodPost
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()        //nolint:errcheck // response body
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return resp.StatusCode, nil
}

// CloseIdleConnections closes the keep-alive connections left by earlier
// probes. The Prober stays usable.
func (p *Prober) CloseIdleConnections() {
	if p.transport != nil {
		p.transport.CloseIdleConnections()
	}
}
