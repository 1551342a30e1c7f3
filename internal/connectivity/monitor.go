// Package connectivity probes a network endpoint on an interval and
// reports online/offline transitions for queue replay.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultInterval is the probe cadence when none is configured.
const DefaultInterval = 15 * time.Second

// probeTimeout bounds a single health check.
const probeTimeout = 5 * time.Second

// Monitor polls an HTTP endpoint and exposes the last observed state.
// Changes delivers only edges; consecutive identical probe results are
// dropped.
type Monitor struct {
	probeURL   string
	interval   time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.RWMutex
	online  bool
	changes chan bool
}

// NewMonitor creates a monitor for the given probe URL. The monitor
// starts offline until the first successful probe.
func NewMonitor(probeURL string, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		probeURL:   probeURL,
		interval:   interval,
		httpClient: &http.Client{Timeout: probeTimeout},
		logger:     logger,
		changes:    make(chan bool, 1),
	}
}

// Online returns the last observed state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Changes returns the edge notification channel. The channel is buffered;
// if the consumer lags, a newer edge replaces the undelivered one.
func (m *Monitor) Changes() <-chan bool {
	return m.changes
}

// Run probes until the context is cancelled. The first probe happens
// immediately, then every interval.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.observe(ctx, m.probe(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.observe(ctx, m.probe(ctx))
		}
	}
}

// probe reports whether the endpoint answered with a non-5xx response.
func (m *Monitor) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode < http.StatusInternalServerError
}

// observe records the probe result and emits an edge when it differs
// from the previous state.
func (m *Monitor) observe(ctx context.Context, online bool) {
	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.InfoContext(ctx, "connectivity changed", "online", online)

	// Replace a stale undelivered edge so the consumer always sees the
	// latest state.
	select {
	case m.changes <- online:
	default:
		select {
		case <-m.changes:
		default:
		}
		select {
		case m.changes <- online:
		default:
		}
	}
}
