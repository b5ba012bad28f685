// Package metrics keeps lightweight in-process counters for the dashboard.
// The registry backs the /metrics endpoint with a compact JSON snapshot;
// request tracing goes through OpenTelemetry separately and is not mirrored
// here.
package metrics

import (
	"maps"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Agent labels used for per-route counters and latency timers.
const (
	AgentTutor    = "tutor"
	AgentPlanner  = "planner"
	AgentAnalyzer = "analyzer"
)

// Registry accumulates counters since process start. Safe for concurrent use.
type Registry struct {
	requests         atomic.Int64
	tutorRequests    atomic.Int64
	plannerRequests  atomic.Int64
	analyzerRequests atomic.Int64
	errors           atomic.Int64

	mu        sync.Mutex
	latencies map[string]*latency
	toolUsage map[string]int64
}

// latency is a running sum so the average never needs the raw samples.
type latency struct {
	totalMS float64
	count   int64
}

// Snapshot is the JSON shape served by the /metrics endpoint.
type Snapshot struct {
	TotalRequests         int64            `json:"total_requests"`
	TotalTutorRequests    int64            `json:"total_tutor_requests"`
	TotalPlannerRequests  int64            `json:"total_planner_requests"`
	TotalAnalyzerRequests int64            `json:"total_analyzer_requests"`
	TotalErrors           int64            `json:"total_errors"`
	AvgTutorLatencyMS     float64          `json:"avg_tutor_latency_ms"`
	AvgPlannerLatencyMS   float64          `json:"avg_planner_latency_ms"`
	ToolUsage             map[string]int64 `json:"tool_usage"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		latencies: make(map[string]*latency),
		toolUsage: make(map[string]int64),
	}
}

// RecordRequest counts one incoming chat request.
func (r *Registry) RecordRequest() {
	r.requests.Add(1)
}

// RecordError counts one failed request.
func (r *Registry) RecordError() {
	r.errors.Add(1)
}

// RecordRoute counts one request routed to the named agent.
func (r *Registry) RecordRoute(agent string) {
	switch agent {
	case AgentTutor:
		r.tutorRequests.Add(1)
	case AgentPlanner:
		r.plannerRequests.Add(1)
	case AgentAnalyzer:
		r.analyzerRequests.Add(1)
	}
}

// RecordTool counts one invocation of the named tool.
func (r *Registry) RecordTool(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toolUsage[name]++
}

// Timer starts a latency measurement for the named agent and returns the
// stop function. Call the stop function exactly once.
func (r *Registry) Timer(agent string) func() {
	start := time.Now()
	return func() {
		ms := float64(time.Since(start).Microseconds()) / 1000.0
		r.recordLatency(agent, ms)
	}
}

func (r *Registry) recordLatency(agent string, ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.latencies[agent]
	if !ok {
		l = &latency{}
		r.latencies[agent] = l
	}
	l.totalMS += ms
	l.count++
}

// Snapshot returns the current counter values. Averages are rounded to two
// decimal places; the tool usage map is a copy.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		TotalRequests:         r.requests.Load(),
		TotalTutorRequests:    r.tutorRequests.Load(),
		TotalPlannerRequests:  r.plannerRequests.Load(),
		TotalAnalyzerRequests: r.analyzerRequests.Load(),
		TotalErrors:           r.errors.Load(),
		AvgTutorLatencyMS:     r.avgLocked(AgentTutor),
		AvgPlannerLatencyMS:   r.avgLocked(AgentPlanner),
		ToolUsage:             maps.Clone(r.toolUsage),
	}
}

// avgLocked computes the rounded average for one agent. Callers hold r.mu.
func (r *Registry) avgLocked(agent string) float64 {
	l, ok := r.latencies[agent]
	if !ok || l.count == 0 {
		return 0
	}
	return math.Round(l.totalMS/float64(l.count)*100) / 100
}
