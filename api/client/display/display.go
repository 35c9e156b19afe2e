// Package display provides a typed client for the display node API: the
// status poll, the snapshot fetch and the operator routes. Every response
// observed here feeds the shared server clock, so callers get drift
// correction without doing anything.
package display

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/azzam1122112-dot/school-display/api/client"
	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/time/serverclock"
	"github.com/pkg/errors"
)

// NoRevision is passed to Status before the first successful snapshot fetch,
// when the device has no revision to compare against.
const NoRevision = -1

// Client provides typed access to one display node on behalf of one screen.
// The screen token rides in the path of every request; the device key rides
// in the dk query parameter.
type Client struct {
	*client.Client
	token  string
	device string
}

// NewClient parses the node host and binds the client to a screen token and
// device key. The device key may be empty for screens that have never been
// bound, but most routes will then be refused server-side.
func NewClient(host, token, device string, opts ...client.ClientOpt) (*Client, error) {
	if token == "" {
		return nil, errors.New("screen token required")
	}
	c, err := client.NewClient(host, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: c, token: token, device: device}, nil
}

// Status is one poll result. Changed reports whether the node wants the
// device to fetch a new snapshot; Revision is the node's current schedule
// revision either way.
type Status struct {
	Revision int64
	Changed  bool
}

// Snapshot is a fetched document together with the validators needed for the
// next conditional request. Body is the uncompressed JSON document.
type Snapshot struct {
	Body        []byte
	ETag        string
	Revision    int64
	Source      api.CacheSource
	DeviceBound bool
}

// SnapshotOpts shape a single snapshot fetch.
type SnapshotOpts struct {
	// ETag makes the fetch conditional; a match returns ErrNotModified.
	ETag string
	// Transition requests a boundary-accurate rebuild that skips the node's
	// short in-process memo.
	Transition bool
}

// Status runs one status poll. known is the device's current revision, or
// NoRevision before the first fetch. A 304 from the node comes back as
// Changed=false, not as an error, because it is the steady state of the poll
// loop.
func (c *Client) Status(ctx context.Context, known int64) (*Status, error) {
	q := c.baseQuery()
	if known != NoRevision {
		q.Set("v", strconv.FormatInt(known, 10))
	}
	resp, err := c.get(ctx, "/api/display/status/"+c.token+"/", q)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	rev := revisionHeader(resp, known)
	switch resp.StatusCode {
	case http.StatusOK:
		var body api.StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, errors.Wrap(err, "could not decode status response")
		}
		return &Status{Revision: body.ScheduleRevision, Changed: body.FetchRequired}, nil
	case http.StatusNotModified:
		return &Status{Revision: rev, Changed: false}, nil
	default:
		return nil, c.apiError(resp)
	}
}

// Snapshot fetches the full document. The transport decompresses gzip bodies
// before they reach Body.
func (c *Client) Snapshot(ctx context.Context, opts SnapshotOpts) (*Snapshot, error) {
	q := c.baseQuery()
	if opts.Transition {
		q.Set("transition", "1")
	}
	resp, err := c.get(ctx, "/api/display/snapshot/"+c.token+"/", q, client.WithIfNoneMatch(opts.ETag))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "could not read snapshot body")
		}
		return &Snapshot{
			Body:        body,
			ETag:        resp.Header.Get("ETag"),
			Revision:    revisionHeader(resp, 0),
			Source:      api.CacheSource(resp.Header.Get(api.SnapshotCacheHeader)),
			DeviceBound: resp.Header.Get(api.DeviceBoundHeader) == "1",
		}, nil
	case http.StatusNotModified:
		return nil, ErrNotModified
	default:
		return nil, c.apiError(resp)
	}
}

// WSMetrics fetches the push plane counter dump.
func (c *Client) WSMetrics(ctx context.Context) (*api.WSMetricsReport, error) {
	resp, err := c.get(ctx, "/api/display/ws-metrics/", nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}
	report := &api.WSMetricsReport{}
	if err := json.NewDecoder(resp.Body).Decode(report); err != nil {
		return nil, errors.Wrap(err, "could not decode ws-metrics response")
	}
	return report, nil
}

// Unbind clears the screen's device claim using the operator token configured
// via client.WithAdminToken.
func (c *Client) Unbind(ctx context.Context) error {
	u := c.BaseURL().ResolveReference(&url.URL{Path: "/api/display/unbind/" + c.token + "/"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set(api.AdminTokenHeader, tok)
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	observeClock(resp)
	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}
	return nil
}

// SocketURL derives the push plane endpoint from the node base url. Unlike
// the HTTP routes, the socket handshake takes the token as a query parameter.
func (c *Client) SocketURL() string {
	u := c.BaseURL().ResolveReference(&url.URL{Path: "/ws/display/"})
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := c.baseQuery()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	if c.device != "" {
		q.Set("dk", c.device)
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values, opts ...client.ReqOption) (*http.Response, error) {
	u := c.BaseURL().ResolveReference(&url.URL{Path: path})
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	observeClock(resp)
	return resp, nil
}

// observeClock feeds the server time header into the shared clock. Missing or
// garbled headers are ignored; the clock keeps its last offset.
func observeClock(resp *http.Response) {
	ms, err := strconv.ParseInt(resp.Header.Get(api.ServerTimeHeader), 10, 64)
	if err != nil {
		return
	}
	serverclock.Observe(ms, time.Now())
}

func revisionHeader(resp *http.Response, fallback int64) int64 {
	rev, err := strconv.ParseInt(resp.Header.Get(api.ScheduleRevisionHeader), 10, 64)
	if err != nil {
		return fallback
	}
	return rev
}

func closeBody(resp *http.Response) {
	_ = resp.Body.Close()
}
