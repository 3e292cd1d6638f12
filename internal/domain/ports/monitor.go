package ports

// ActivityMonitor collects what the kiosk has been doing for the health
// endpoint. Implementations must be safe for concurrent use.
type ActivityMonitor interface {
	RecordRequest(status int)
	RecordClient(connected bool)
	RecordNavigation()
	RecordContentChange()
	Health() HealthReport
}

// ActivityCounts are the counters behind a HealthReport
type ActivityCounts struct {
	HTTPRequests         int64 `json:"http_requests"`
	HTTPErrors           int64 `json:"http_errors"`
	WebSocketClients     int64 `json:"websocket_clients"`
	WebSocketConnections int64 `json:"websocket_connections"`
	NavigationEvents     int64 `json:"navigation_events"`
	ContentChanges       int64 `json:"content_changes"`
}

// HealthReport is served by GET /api/health
type HealthReport struct {
	Healthy       bool           `json:"healthy"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	MemoryMB      int64          `json:"memory_mb"`
	HeapMB        int64          `json:"heap_mb"`
	Goroutines    int            `json:"goroutines"`
	GCCycles      uint32         `json:"gc_cycles"`
	SampledAt     string         `json:"sampled_at"`
	Activity      ActivityCounts `json:"activity"`
}
