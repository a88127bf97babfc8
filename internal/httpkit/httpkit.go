// Package httpkit builds the outbound HTTP clients used for the model
// provider and the news sources.
package httpkit

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// UserAgent is sent on every outbound request that does not set its own.
const UserAgent = "ReplyCraft/1.0"

const (
	dialTimeout         = 10 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	idleConnTimeout     = 90 * time.Second
)

// DefaultResponseHeaderTimeout bounds the wait for response headers unless a
// client overrides it with WithResponseHeaderTimeout.
var DefaultResponseHeaderTimeout = 20 * time.Second

// ClientOption configures a client built by NewClient.
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout       time.Duration
	headerTimeout time.Duration
	userAgent     string
}

// WithTimeout sets the overall request timeout. Zero disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithResponseHeaderTimeout sets how long to wait for response headers.
// Zero disables it.
func WithResponseHeaderTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.headerTimeout = d }
}

// WithUserAgent overrides UserAgent.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) { c.userAgent = ua }
}

// NewClient returns an *http.Client with bounded dial, TLS and header timeouts.
func NewClient(opts ...ClientOption) *http.Client {
	cfg := &clientConfig{
		timeout:       30 * time.Second,
		headerTimeout: DefaultResponseHeaderTimeout,
		userAgent:     UserAgent,
	}
	for _, o := range opts {
		o(cfg)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: cfg.headerTimeout,
		IdleConnTimeout:       idleConnTimeout,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   cfg.timeout,
		Transport: &userAgentTransport{base: transport, ua: cfg.userAgent},
	}
}

type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	return t.base.RoundTrip(req)
}

// DrainAndClose reads up to limit bytes from rc and closes it so the
// connection can be reused.
func DrainAndClose(rc io.ReadCloser, limit int64) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, limit))
	rc.Close()
}

// ReadErrorBody reads up to limit bytes of rc for an error message and
// drains the rest.
func ReadErrorBody(rc io.ReadCloser, limit int64) string {
	if rc == nil {
		return ""
	}
	body, _ := io.ReadAll(io.LimitReader(rc, limit))
	DrainAndClose(rc, 64<<10)
	return strings.TrimSpace(string(body))
}

// IsNetworkError reports whether err is a DNS or connection-level failure,
// as opposed to an HTTP-level error returned by a reachable server.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH, syscall.ENETUNREACH:
			return true
		}
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
