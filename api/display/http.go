package display

// Response headers set by the display API. Every status and snapshot response
// carries the server clock and the current schedule revision so agents can
// resync without parsing the body.
const (
	ServerTimeHeader       = "X-Server-Time-MS"
	ScheduleRevisionHeader = "X-Schedule-Revision"
	SnapshotCacheHeader    = "X-Snapshot-Cache"
	DeviceBoundHeader      = "X-Snapshot-Device-Bound"

	// DeviceHeader lets clients supply the device key in a header instead of
	// the dk query parameter. The query parameter wins when both are present.
	DeviceHeader = "X-Display-Device"

	// AdminTokenHeader authenticates operator requests on admin-only routes.
	AdminTokenHeader = "X-Admin-Token"
)

// CacheSource is the X-Snapshot-Cache marker describing where the served
// snapshot body came from.
type CacheSource string

const (
	CacheHit    CacheSource = "HIT"
	CacheMiss   CacheSource = "MISS"
	CacheStale  CacheSource = "STALE"
	CacheBypass CacheSource = "BYPASS"
)

// Error codes carried in the typed error body.
const (
	CodeScreenUnknown    = "screen_unknown"
	CodeScreenBound      = "screen_bound"
	CodeDeviceRequired   = "device_required"
	CodeRateLimited      = "rate_limited"
	CodeBuildUnavailable = "build_unavailable"
	CodeBadRequest       = "bad_request"
	CodeWSUnavailable    = "ws_unavailable"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx display API response that
// carries a body at all. Rate limited responses are the exception: they are
// empty and signal retry timing through the Retry-After header.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusResponse answers a status poll whose v parameter trails the current
// revision. Matching polls get a bodyless 304 instead.
type StatusResponse struct {
	ScheduleRevision int64 `json:"schedule_revision"`
	FetchRequired    bool  `json:"fetch_required"`
}

// Health classifications reported by the ws-metrics endpoint.
const (
	HealthOK       = "ok"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// WSMetricsReport is the public counter dump served at ws-metrics. Latency
// figures are milliseconds.
type WSMetricsReport struct {
	ConnectionsActive     int64   `json:"connections_active"`
	ConnectionsTotal      int64   `json:"connections_total"`
	ConnectionsFailed     int64   `json:"connections_failed"`
	BroadcastsSent        int64   `json:"broadcasts_sent"`
	BroadcastsFailed      int64   `json:"broadcasts_failed"`
	BroadcastLatencySumMS float64 `json:"broadcast_latency_sum_ms"`
	BroadcastLatencyCount int64   `json:"broadcast_latency_count"`
	AvgLatencyMS          float64 `json:"avg_latency_ms"`
	Health                string  `json:"health"`
}
