package pipeline

import (
	"context"
	"time"

	"github.com/thesathwik/brainstorm-buddy/internal/degradation"
	"github.com/thesathwik/brainstorm-buddy/internal/resilience"
)

// HealthChecker is the slice of the completion client the monitor probes.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
	OfflineMode() bool
}

// Monitor periodically probes completion-service health and maps the
// result onto the process-wide degradation level. Transitions are explicit:
// only these checks (or the admin API) move the level.
type Monitor struct {
	client   HealthChecker
	coord    *resilience.Coordinator
	degrade  *degradation.Service
	pipeline *Pipeline
	interval time.Duration

	done chan struct{}
}

func NewMonitor(client HealthChecker, coord *resilience.Coordinator, degrade *degradation.Service, p *Pipeline, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		client:   client,
		coord:    coord,
		degrade:  degrade,
		pipeline: p,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the periodic health sweep.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep(ctx)
			case <-ctx.Done():
				close(m.done)
				return
			}
		}
	}()
}

// Wait blocks until the monitor has observed shutdown.
func (m *Monitor) Wait() {
	<-m.done
}

func (m *Monitor) sweep(ctx context.Context) {
	m.pipeline.CheckPauses(ctx)

	if m.client.OfflineMode() {
		m.degrade.SetLevel(degradation.LevelOffline, "offline mode forced")
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.interval/2)
	healthy := m.client.IsHealthy(probeCtx)
	cancel()

	if !healthy {
		m.degrade.SetLevel(degradation.LevelSevere, "completion service health probe failed")
		return
	}

	switch m.coord.SystemHealth().Status {
	case "unhealthy":
		m.degrade.SetLevel(degradation.LevelModerate, "high recent failure rate")
	case "degraded":
		m.degrade.SetLevel(degradation.LevelMinimal, "elevated recent failure rate")
	default:
		m.degrade.SetLevel(degradation.LevelNone, "completion service healthy")
	}
}
