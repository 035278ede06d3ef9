package scanner

import (
	"strings"
	"sync"
	"time"

	"github.com/ajharbinger/dealflowos/internal/clock"
)

// HealthMonitor tracks sweep outcomes and failure streaks
type HealthMonitor struct {
	mu                   sync.RWMutex
	clock                clock.Clock
	totalSweeps          int64
	failedSweeps         int64
	skippedTicks         int64
	consecutiveFailures  int64
	phaseFailures        map[string]int64
	lastFailureTime      time.Time
	lastSuccessTime      time.Time
	recentFailures       []FailureRecord
	maxRecentFailures    int
	consecutiveThreshold int64         // Max consecutive failed sweeps before alerting
	staleAfter           time.Duration // Max time without a clean sweep
}

// FailureRecord represents a single failed phase
type FailureRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     string    `json:"phase"`
	Error     string    `json:"error"`
}

// HealthStatus represents the current health of the scanner
type HealthStatus struct {
	IsHealthy           bool             `json:"is_healthy"`
	TotalSweeps         int64            `json:"total_sweeps"`
	FailedSweeps        int64            `json:"failed_sweeps"`
	SkippedTicks        int64            `json:"skipped_ticks"`
	ConsecutiveFailures int64            `json:"consecutive_failures"`
	PhaseFailures       map[string]int64 `json:"phase_failures"`
	LastFailureTime     *time.Time       `json:"last_failure_time,omitempty"`
	LastSuccessTime     *time.Time       `json:"last_success_time,omitempty"`
	RecentFailures      []FailureRecord  `json:"recent_failures"`
	HealthIssues        []string         `json:"health_issues"`
	RecommendedActions  []string         `json:"recommended_actions"`
}

// NewHealthMonitor creates a health monitor that flags the scanner as
// stale when no clean sweep happened within staleAfter
func NewHealthMonitor(clk clock.Clock, staleAfter time.Duration) *HealthMonitor {
	if clk == nil {
		clk = clock.New()
	}
	if staleAfter <= 0 {
		staleAfter = 10 * DefaultConfig().Interval
	}
	return &HealthMonitor{
		clock:                clk,
		phaseFailures:        make(map[string]int64),
		maxRecentFailures:    50,
		consecutiveThreshold: 3,
		staleAfter:           staleAfter,
		recentFailures:       make([]FailureRecord, 0, 50),
	}
}

// RecordSweep records a completed sweep
func (h *HealthMonitor) RecordSweep(result SweepResult) {
	if result.Skipped {
		h.RecordSkip()
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	h.totalSweeps++

	if result.OK() {
		h.consecutiveFailures = 0
		h.lastSuccessTime = now
		return
	}

	h.failedSweeps++
	h.consecutiveFailures++
	h.lastFailureTime = now
	if result.ReminderError != "" {
		h.addFailure(now, PhaseReminders, result.ReminderError)
	}
	if result.EventError != "" {
		h.addFailure(now, PhaseEvents, result.EventError)
	}
}

func (h *HealthMonitor) addFailure(at time.Time, phase, msg string) {
	h.phaseFailures[phase]++
	h.recentFailures = append(h.recentFailures, FailureRecord{Timestamp: at, Phase: phase, Error: msg})
	if len(h.recentFailures) > h.maxRecentFailures {
		h.recentFailures = h.recentFailures[1:]
	}
}

// RecordSkip records a tick that did not sweep
func (h *HealthMonitor) RecordSkip() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skippedTicks++
}

// GetHealthStatus returns the current health status
func (h *HealthMonitor) GetHealthStatus() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := HealthStatus{
		TotalSweeps:         h.totalSweeps,
		FailedSweeps:        h.failedSweeps,
		SkippedTicks:        h.skippedTicks,
		ConsecutiveFailures: h.consecutiveFailures,
		PhaseFailures:       make(map[string]int64, len(h.phaseFailures)),
		RecentFailures:      make([]FailureRecord, len(h.recentFailures)),
		HealthIssues:        []string{},
		RecommendedActions:  []string{},
	}
	copy(status.RecentFailures, h.recentFailures)
	for phase, n := range h.phaseFailures {
		status.PhaseFailures[phase] = n
	}

	if !h.lastFailureTime.IsZero() {
		t := h.lastFailureTime
		status.LastFailureTime = &t
	}
	if !h.lastSuccessTime.IsZero() {
		t := h.lastSuccessTime
		status.LastSuccessTime = &t
	}

	status.IsHealthy = true

	if h.consecutiveFailures >= h.consecutiveThreshold {
		status.IsHealthy = false
		status.HealthIssues = append(status.HealthIssues,
			"Multiple consecutive failed sweeps detected")
		status.RecommendedActions = append(status.RecommendedActions,
			"Check database connectivity and recent scanner errors")
	}

	if !h.lastSuccessTime.IsZero() && h.clock.Now().Sub(h.lastSuccessTime) > h.staleAfter {
		status.IsHealthy = false
		status.HealthIssues = append(status.HealthIssues,
			"No clean sweep within the expected window")
		status.RecommendedActions = append(status.RecommendedActions,
			"Verify the scanner is running and the lock is not held by a dead instance")
	}

	h.analyzeFailurePatterns(&status)

	return status
}

// analyzeFailurePatterns looks for a dominant error type in recent failures
func (h *HealthMonitor) analyzeFailurePatterns(status *HealthStatus) {
	if len(h.recentFailures) < 3 {
		return
	}

	errorCounts := make(map[string]int)
	for _, failure := range h.recentFailures {
		errorCounts[categorizeError(failure.Error)]++
	}

	totalRecent := len(h.recentFailures)
	for errorType, count := range errorCounts {
		if float64(count)/float64(totalRecent) <= 0.5 {
			continue
		}
		switch errorType {
		case "timeout":
			status.HealthIssues = append(status.HealthIssues,
				"Frequent timeout errors detected")
			status.RecommendedActions = append(status.RecommendedActions,
				"Lower SCANNER_BATCH_LIMIT or check database load")
		case "network":
			status.HealthIssues = append(status.HealthIssues,
				"Database connectivity issues detected")
			status.RecommendedActions = append(status.RecommendedActions,
				"Check DATABASE_URL and network reachability")
		case "panic":
			status.HealthIssues = append(status.HealthIssues,
				"Scanner phases are panicking")
			status.RecommendedActions = append(status.RecommendedActions,
				"Inspect server logs for the panic value")
		}
	}
}

// categorizeError categorizes an error message into a type
func categorizeError(errorMsg string) string {
	errorMsg = strings.ToLower(errorMsg)

	if strings.Contains(errorMsg, "panic") {
		return "panic"
	}
	if strings.Contains(errorMsg, "timeout") || strings.Contains(errorMsg, "deadline") {
		return "timeout"
	}
	if strings.Contains(errorMsg, "connection") || strings.Contains(errorMsg, "network") || strings.Contains(errorMsg, "dial") {
		return "network"
	}
	return "other"
}

// Reset clears all health monitoring data
func (h *HealthMonitor) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.totalSweeps = 0
	h.failedSweeps = 0
	h.skippedTicks = 0
	h.consecutiveFailures = 0
	h.phaseFailures = make(map[string]int64)
	h.lastFailureTime = time.Time{}
	h.lastSuccessTime = time.Time{}
	h.recentFailures = h.recentFailures[:0]
}

// IsHealthy returns true if the scanner is sweeping cleanly
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetHealthStatus().IsHealthy
}

// GetFailureRate returns the fraction of sweeps with at least one failed phase
func (h *HealthMonitor) GetFailureRate() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.totalSweeps == 0 {
		return 0.0
	}
	return float64(h.failedSweeps) / float64(h.totalSweeps)
}
