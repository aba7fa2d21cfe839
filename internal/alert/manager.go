// Package alert evaluates risk thresholds against accepted readings and owns
// the bounded list of alert records.
package alert

import (
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Trigger policy. The conditions are OR-combined: any one is sufficient.
const (
	// FireRiskThreshold is the derived index at or above which a reading alerts.
	FireRiskThreshold = 80
	// SoundThresholdDB is the sound level at or above which a reading alerts.
	SoundThresholdDB = 100.0
	// DefaultCapacity bounds the alert list; the oldest alert is evicted on overflow.
	DefaultCapacity = 300
)

// ErrNotFound is returned when acknowledging an alert id that is not (or no
// longer) in the list. It is an expected outcome, not an internal failure.
var ErrNotFound = errors.New("alert not found")

// Manager owns the alert list. Every qualifying reading produces a new alert;
// there is deliberately no per-node deduplication or cooldown, matching the
// behavior operators already rely on for burst visibility.
type Manager struct {
	mu       sync.Mutex
	alerts   []domain.Alert // most-recent-first
	capacity int
	clock    clockwork.Clock
	seq      uint64
}

// NewManager creates a Manager. A capacity of zero or below falls back to
// DefaultCapacity; a nil clock falls back to the real clock.
func NewManager(capacity int, clock clockwork.Clock) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		alerts:   make([]domain.Alert, 0, capacity),
		capacity: capacity,
		clock:    clock,
	}
}

// Evaluate applies the trigger policy to an accepted reading. When a
// threshold trips it creates, records, and returns the new alert; otherwise
// it returns false and leaves the list untouched.
func (m *Manager) Evaluate(r domain.Reading, d domain.DerivedMetrics) (domain.Alert, bool) {
	flame := r.Flame1 || r.Flame2
	if d.FireRiskIndex < FireRiskThreshold && !flame && r.SoundDB < SoundThresholdDB {
		return domain.Alert{}, false
	}

	alertType := domain.AlertWarning
	if flame {
		alertType = domain.AlertFire
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	a := domain.Alert{
		ID:            fmt.Sprintf("%d-%d", m.clock.Now().UnixMilli(), m.seq),
		ZoneID:        r.ZoneID,
		NodeID:        r.NodeID,
		Type:          alertType,
		FireRiskIndex: d.FireRiskIndex,
		SoundDB:       r.SoundDB,
		SoundType:     r.SoundType,
		CreatedAt:     m.clock.Now(),
	}

	// Prepend; evict the oldest (tail) when over capacity.
	m.alerts = append(m.alerts, domain.Alert{})
	copy(m.alerts[1:], m.alerts)
	m.alerts[0] = a
	if len(m.alerts) > m.capacity {
		m.alerts = m.alerts[:m.capacity]
	}

	return a, true
}

// Acknowledge marks the alert as acknowledged. Idempotent: acknowledging an
// already-acknowledged alert succeeds without change. Returns ErrNotFound for
// ids that are unknown or already evicted.
func (m *Manager) Acknowledge(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Acknowledged = true
			return nil
		}
	}
	return ErrNotFound
}

// List returns a copy of the alert list, most recent first.
func (m *Manager) List() []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}
