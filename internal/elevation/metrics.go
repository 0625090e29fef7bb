package elevation

import (
	"sync"
	"time"
)

// Metrics contains launch statistics for the lifetime of a Launcher.
type Metrics struct {
	mu                sync.RWMutex
	LaunchAttempts    int64         `json:"launch_attempts"`
	LaunchSuccesses   int64         `json:"launch_successes"`
	LaunchFailures    int64         `json:"launch_failures"`
	TotalLaunchTime   time.Duration `json:"total_launch_time"`
	AverageLaunchTime time.Duration `json:"average_launch_time"`
	MaxLaunchTime     time.Duration `json:"max_launch_time"`
	LastLaunchTime    time.Time     `json:"last_launch_time"`
	LastError         string        `json:"last_error,omitempty"`
	SuccessRate       float64       `json:"success_rate"`
}

// RecordLaunchSuccess records a successful launch
func (m *Metrics) RecordLaunchSuccess(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LaunchAttempts++
	m.LaunchSuccesses++
	m.TotalLaunchTime += duration
	m.AverageLaunchTime = m.TotalLaunchTime / time.Duration(m.LaunchSuccesses)
	if duration > m.MaxLaunchTime {
		m.MaxLaunchTime = duration
	}
	m.LastLaunchTime = time.Now()
	m.updateSuccessRate()
}

// RecordLaunchFailure records a failed launch
func (m *Metrics) RecordLaunchFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LaunchAttempts++
	m.LaunchFailures++
	m.LastError = err.Error()
	m.LastLaunchTime = time.Now()
	m.updateSuccessRate()
}

// updateSuccessRate must be called with the lock held
func (m *Metrics) updateSuccessRate() {
	if m.LaunchAttempts > 0 {
		m.SuccessRate = float64(m.LaunchSuccesses) / float64(m.LaunchAttempts)
	} else {
		m.SuccessRate = 0.0
	}
}

// GetSnapshot returns a copy of the current metrics
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Metrics{
		LaunchAttempts:    m.LaunchAttempts,
		LaunchSuccesses:   m.LaunchSuccesses,
		LaunchFailures:    m.LaunchFailures,
		TotalLaunchTime:   m.TotalLaunchTime,
		AverageLaunchTime: m.AverageLaunchTime,
		MaxLaunchTime:     m.MaxLaunchTime,
		LastLaunchTime:    m.LastLaunchTime,
		LastError:         m.LastError,
		SuccessRate:       m.SuccessRate,
	}
}

// LogAttrs returns the metrics as slog key/value pairs.
func (m *Metrics) LogAttrs() []any {
	s := m.GetSnapshot()
	return []any{
		"launch_attempts", s.LaunchAttempts,
		"launch_successes", s.LaunchSuccesses,
		"launch_failures", s.LaunchFailures,
		"average_launch_time", s.AverageLaunchTime,
		"max_launch_time", s.MaxLaunchTime,
		"success_rate", s.SuccessRate,
	}
}
