package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/marksheet-extractor/internal/llm"
	"github.com/joseph-ayodele/marksheet-extractor/internal/repository"
)

// Health service names.
const (
	ServiceOCR   = "marksheet.ocr"
	ServiceLLM   = "marksheet.llm"
	ServiceStore = "marksheet.store"
)

// Dependency statuses reported in a Report.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded" // overall only
	StatusUnhealthy = "unhealthy"
	StatusUnchecked = "unchecked" // dependency offers no probe
	StatusDisabled  = "disabled"  // dependency not configured
)

// Probe checks one dependency. A nil Check reports Status instead.
type Probe struct {
	Name   string
	Check  func(ctx context.Context) error
	Status string
}

// Report is the result of one round of probes.
type Report struct {
	Status    string            `json:"status"`
	Timestamp float64           `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Healthy reports whether no probe failed.
func (r Report) Healthy() bool { return r.Status == StatusHealthy }

// HealthMonitor runs probes and publishes the outcome on a gRPC health server.
type HealthMonitor struct {
	hs       *health.Server
	probes   []Probe
	interval time.Duration
	timeout  time.Duration
	version  string
	logger   *slog.Logger

	mu   sync.RWMutex
	last Report
}

// NewHealthMonitor accepts a nil hs for one-shot reports.
func NewHealthMonitor(hs *health.Server, logger *slog.Logger, interval time.Duration, version string, probes ...Probe) *HealthMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthMonitor{
		hs:       hs,
		probes:   probes,
		interval: interval,
		timeout:  10 * time.Second,
		version:  version,
		logger:   logger,
	}
}

// Check runs every probe concurrently and publishes the statuses.
func (m *HealthMonitor) Check(ctx context.Context) Report {
	rep := Report{
		Status:    StatusHealthy,
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
		Version:   m.version,
		Services:  make(map[string]string, len(m.probes)),
	}

	type outcome struct {
		name, status string
		err          error
	}
	results := make([]outcome, len(m.probes))
	var wg sync.WaitGroup
	for i, p := range m.probes {
		if p.Check == nil {
			results[i] = outcome{name: p.Name, status: p.Status}
			continue
		}
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			if err := p.Check(pctx); err != nil {
				results[i] = outcome{name: p.Name, status: StatusUnhealthy, err: err}
				return
			}
			results[i] = outcome{name: p.Name, status: StatusHealthy}
		}(i, p)
	}
	wg.Wait()

	for _, o := range results {
		rep.Services[o.name] = o.status
		if o.err != nil {
			if rep.Errors == nil {
				rep.Errors = map[string]string{}
			}
			rep.Errors[o.name] = o.err.Error()
			rep.Status = StatusDegraded
		}
		m.publish(o.name, o.status)
	}
	overall := StatusHealthy
	if !rep.Healthy() {
		overall = StatusUnhealthy
	}
	m.publish("", overall)

	m.mu.Lock()
	m.last = rep
	m.mu.Unlock()

	attrs := []any{"status", rep.Status}
	for _, name := range sortedKeys(rep.Services) {
		attrs = append(attrs, name, rep.Services[name])
	}
	if rep.Healthy() {
		m.logger.Debug("health.check", attrs...)
	} else {
		m.logger.Warn("health.check", append(attrs, "errors", rep.Errors)...)
	}
	return rep
}

// Last returns the most recent report.
func (m *HealthMonitor) Last() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Run checks immediately and then on every interval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Check(ctx)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Check(ctx)
		}
	}
}

func (m *HealthMonitor) publish(name, status string) {
	if m.hs == nil {
		return
	}
	m.hs.SetServingStatus(name, servingStatus(status))
}

func servingStatus(status string) healthpb.HealthCheckResponse_ServingStatus {
	switch status {
	case StatusHealthy, StatusDisabled:
		return healthpb.HealthCheckResponse_SERVING
	case StatusUnhealthy:
		return healthpb.HealthCheckResponse_NOT_SERVING
	default:
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
}

// OCRProbe checks the recognizer's engine.
func OCRProbe(check func(ctx context.Context) error) Probe {
	return Probe{Name: ServiceOCR, Check: check}
}

// LLMProbe uses the generator's own health check when it has one.
func LLMProbe(gen llm.Generator) Probe {
	if hc, ok := gen.(llm.HealthChecker); ok {
		return Probe{Name: ServiceLLM, Check: hc.Healthy}
	}
	return Probe{Name: ServiceLLM, Status: StatusUnchecked}
}

// StoreProbe pings the store; a nil repo is reported as disabled.
func StoreProbe(repo repository.ExtractionRepository, logger *slog.Logger) Probe {
	if repo == nil {
		return Probe{Name: ServiceStore, Status: StatusDisabled}
	}
	return Probe{Name: ServiceStore, Check: func(ctx context.Context) error {
		return repository.HealthCheck(ctx, repo, 0, logger)
	}}
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
