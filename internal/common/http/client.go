// internal/common/http/client.go
package http

import (
	"net"
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
}

type Option func(*options)

type options struct {
	userAgent string
}

// WithUserAgent sets the User-Agent header on every outgoing request that
// does not already carry one.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// NewClient builds a pooled client. A zero timeout leaves deadlines to the
// request context.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if o.userAgent != "" {
		transport = &userAgentTransport{base: transport, userAgent: o.userAgent}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Standard returns the underlying *http.Client for SDKs that take one.
func (c *Client) Standard() *http.Client {
	return c.httpClient
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
