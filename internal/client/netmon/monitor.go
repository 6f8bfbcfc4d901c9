package netmon

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// Status is the observed network condition
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	// StatusSlow means the server answered but above the latency threshold.
	// Slow is online for correctness purposes; only scheduling changes.
	StatusSlow Status = "slow"
)

// Reachable reports whether the server can be reached at all in this status
func (s Status) Reachable() bool {
	return s == StatusOnline || s == StatusSlow
}

// Config holds monitor settings
type Config struct {
	// ProbeURL is the server health endpoint
	ProbeURL      string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	SlowThreshold time.Duration
}

// Monitor probes the server's health endpoint on an interval and publishes
// status changes to subscribers. Probing the actual server, not a generic
// reachability check: a reachable internet with an unreachable server is
// still offline for sync purposes.
type Monitor struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.RWMutex
	status      Status
	subscribers map[int]chan Status
	nextSubID   int

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor creates a network status monitor. Status starts offline until
// the first probe says otherwise.
func NewMonitor(cfg Config) *Monitor {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = 1500 * time.Millisecond
	}

	return &Monitor{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
		status:      StatusOffline,
		subscribers: make(map[int]chan Status),
		stopChan:    make(chan struct{}),
	}
}

// Status returns the last observed status
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Subscribe returns a channel receiving every status change and a cancel
// function releasing the subscription. The channel is buffered; a slow
// consumer drops intermediate transitions, never blocks the monitor.
func (m *Monitor) Subscribe() (<-chan Status, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++

	ch := make(chan Status, 4)
	m.subscribers[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}
}

// Set forces the status, notifying subscribers on change. Used by tests and
// by the syncer when a request fails while the monitor still says online.
func (m *Monitor) Set(status Status) {
	m.mu.Lock()
	changed := m.status != status
	m.status = status
	var subs []chan Status
	if changed {
		for _, ch := range m.subscribers {
			subs = append(subs, ch)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	log.Printf("[DEBUG] Network status changed to %s", status)
	for _, ch := range subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// Start begins periodic probing. An immediate probe runs before the first
// tick so startup does not wait a full interval.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.Set(m.probe(ctx))

		ticker := time.NewTicker(m.cfg.ProbeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopChan:
				return
			case <-ticker.C:
				m.Set(m.probe(ctx))
			}
		}
	}()
}

// Stop stops probing and waits for the probe goroutine to exit
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
}

// probe measures one round trip to the health endpoint
func (m *Monitor) probe(ctx context.Context) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.ProbeURL, nil)
	if err != nil {
		return StatusOffline
	}

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return StatusOffline
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return StatusOffline
	}

	if time.Since(start) > m.cfg.SlowThreshold {
		return StatusSlow
	}
	return StatusOnline
}
