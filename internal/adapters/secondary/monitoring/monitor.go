package monitoring

import (
	"context"
	"math"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// DefaultSampleInterval is how often runtime statistics are refreshed
const DefaultSampleInterval = 30 * time.Second

// Limits decide when the kiosk reports itself unhealthy
type Limits struct {
	MaxMemoryBytes int64
	MaxGoroutines  int
}

// DefaultLimits are generous for a single kiosk process
func DefaultLimits() Limits {
	return Limits{
		MaxMemoryBytes: 500 * 1024 * 1024,
		MaxGoroutines:  1000,
	}
}

type runtimeSample struct {
	at         time.Time
	memory     int64
	heap       int64
	goroutines int
	gcCycles   uint32
}

// Monitor counts kiosk activity and samples runtime statistics
type Monitor struct {
	clock    ports.Clock
	interval time.Duration
	limits   Limits
	started  time.Time

	requests    atomic.Int64
	httpErrors  atomic.Int64
	clients     atomic.Int64
	connections atomic.Int64
	navigations atomic.Int64
	changes     atomic.Int64

	sampleMu sync.RWMutex
	sample   runtimeSample

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a monitor. Uptime is measured from now.
func NewMonitor(clock ports.Clock, interval time.Duration, limits Limits) *Monitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{
		clock:    clock,
		interval: interval,
		limits:   limits,
		started:  clock.Now(),
	}
}

// Start samples once and then every interval until Stop or ctx is done
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	m.updateSample()
	ticker := m.clock.NewTicker(m.interval)
	go m.collect(ctx, ticker, m.stopCh, m.doneCh)
}

// Stop ends sampling and waits for the loop to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) collect(ctx context.Context, ticker ports.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C():
			m.updateSample()
		}
	}
}

func (m *Monitor) updateSample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s := runtimeSample{
		at:         m.clock.Now(),
		memory:     safeUint64ToInt64(memStats.Alloc),
		heap:       safeUint64ToInt64(memStats.HeapAlloc),
		goroutines: runtime.NumGoroutine(),
		gcCycles:   memStats.NumGC,
	}

	m.sampleMu.Lock()
	m.sample = s
	m.sampleMu.Unlock()
}

// RecordRequest counts a finished HTTP request
func (m *Monitor) RecordRequest(status int) {
	m.requests.Add(1)
	if status >= http.StatusInternalServerError {
		m.httpErrors.Add(1)
	}
}

// RecordClient tracks websocket clients coming and going
func (m *Monitor) RecordClient(connected bool) {
	if connected {
		m.connections.Add(1)
		m.clients.Add(1)
		return
	}
	m.clients.Add(-1)
}

// RecordNavigation counts an effective cursor change
func (m *Monitor) RecordNavigation() {
	m.navigations.Add(1)
}

// RecordContentChange counts a slide event
func (m *Monitor) RecordContentChange() {
	m.changes.Add(1)
}

// Activity returns the current counters
func (m *Monitor) Activity() ports.ActivityCounts {
	return ports.ActivityCounts{
		HTTPRequests:         m.requests.Load(),
		HTTPErrors:           m.httpErrors.Load(),
		WebSocketClients:     m.clients.Load(),
		WebSocketConnections: m.connections.Load(),
		NavigationEvents:     m.navigations.Load(),
		ContentChanges:       m.changes.Load(),
	}
}

// Uptime returns the time since the monitor was created
func (m *Monitor) Uptime() time.Duration {
	return m.clock.Now().Sub(m.started)
}

// Health reports the latest sample with the activity counters. A monitor
// that was never started samples on demand.
func (m *Monitor) Health() ports.HealthReport {
	m.sampleMu.RLock()
	s := m.sample
	m.sampleMu.RUnlock()

	if s.at.IsZero() {
		m.updateSample()
		m.sampleMu.RLock()
		s = m.sample
		m.sampleMu.RUnlock()
	}

	uptime := m.Uptime().Truncate(time.Second)
	return ports.HealthReport{
		Healthy:       m.isHealthy(s),
		Uptime:        uptime.String(),
		UptimeSeconds: int64(uptime / time.Second),
		MemoryMB:      s.memory / (1024 * 1024),
		HeapMB:        s.heap / (1024 * 1024),
		Goroutines:    s.goroutines,
		GCCycles:      s.gcCycles,
		SampledAt:     entities.FormatTimestamp(s.at),
		Activity:      m.Activity(),
	}
}

func (m *Monitor) isHealthy(s runtimeSample) bool {
	if m.limits.MaxMemoryBytes > 0 && s.memory >= m.limits.MaxMemoryBytes {
		return false
	}
	if m.limits.MaxGoroutines > 0 && s.goroutines >= m.limits.MaxGoroutines {
		return false
	}
	return true
}

// safeUint64ToInt64 safely converts uint64 to int64, capping at max int64 value
func safeUint64ToInt64(val uint64) int64 {
	if val > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(val)
}

var _ ports.ActivityMonitor = (*Monitor)(nil)
