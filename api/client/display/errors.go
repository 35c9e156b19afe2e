package display

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/azzam1122112-dot/school-display/api/client"
	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/pkg/errors"
)

// ErrNotModified reports a conditional snapshot fetch whose ETag still
// matched. The caller's copy of the document is current.
var ErrNotModified = errors.New("snapshot not modified")

// RateLimitError is the node's empty 429. RetryAfter is the server's
// suggested pause, zero when the header was absent.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// BindingError is a 403 refusal. Code is one of the api error code strings;
// every one of them is permanent for the current (token, device) pair, so
// retrying without operator intervention cannot succeed.
type BindingError struct {
	Code    string
	Message string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("refused by node: %s (%s)", e.Code, e.Message)
}

// BuildBusyError is the 503 served while another process holds the snapshot
// build lock and no stale copy survived to bridge the gap.
type BuildBusyError struct {
	RetryAfter time.Duration
}

func (e *BuildBusyError) Error() string {
	return fmt.Sprintf("snapshot build in progress, retry after %s", e.RetryAfter)
}

// apiError maps a non-2xx display API response onto the typed errors above,
// falling back to the generic wrapped ErrNotOK.
func (c *Client) apiError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	case http.StatusForbidden:
		body := decodeErrorBody(resp)
		return &BindingError{Code: body.Code, Message: body.Message}
	case http.StatusServiceUnavailable:
		if body := decodeErrorBody(resp); body.Code == api.CodeBuildUnavailable {
			return &BuildBusyError{RetryAfter: retryAfter(resp)}
		}
	}
	return client.Non200Err(resp)
}

// decodeErrorBody tolerates empty and malformed bodies; the zero value keeps
// the status code as the only signal.
func decodeErrorBody(resp *http.Response) api.ErrorResponse {
	var body api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return body
}

func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
