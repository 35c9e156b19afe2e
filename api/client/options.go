package client

import (
	"net/http"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
)

type ReqOption func(*http.Request)

// WithDeviceKey sets the device key header on a single request. The dk query
// parameter takes precedence server-side when both are present.
func WithDeviceKey(dk string) ReqOption {
	return func(req *http.Request) {
		req.Header.Set(display.DeviceHeader, dk)
	}
}

// WithIfNoneMatch makes the request conditional on the given ETag. An empty
// tag leaves the request unconditional.
func WithIfNoneMatch(etag string) ReqOption {
	return func(req *http.Request) {
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
	}
}

// ClientOpt is a functional option for the Client type (http.Client wrapper)
type ClientOpt func(*Client)

// WithTimeout sets the .Timeout attribute of the wrapped http.Client.
func WithTimeout(timeout time.Duration) ClientOpt {
	return func(c *Client) {
		c.hc.Timeout = timeout
	}
}

// WithCustomTransport replaces the underlying http's transport with a custom one.
func WithCustomTransport(t http.RoundTripper) ClientOpt {
	return func(c *Client) {
		c.hc.Transport = t
	}
}

// WithAdminToken stores the operator token sent on admin-only routes such as
// unbind.
func WithAdminToken(token string) ClientOpt {
	return func(c *Client) {
		c.token = token
	}
}
