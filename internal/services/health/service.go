package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

const defaultCheckTimeout = 3 * time.Second

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Report is the readiness payload.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Service runs named dependency checks.
type Service struct {
	Checks  map[string]Check
	Timeout time.Duration
}

// NewService constructs a health service with no checks.
func NewService() *Service {
	return &Service{Checks: map[string]Check{}, Timeout: defaultCheckTimeout}
}

// Register adds or replaces a named check.
func (s *Service) Register(name string, check Check) {
	if check != nil {
		s.Checks[name] = check
	}
}

// Live always reports ok.
func (s *Service) Live() Report {
	return Report{OK: true}
}

// Ready runs every check concurrently, each under the check timeout.
func (s *Service) Ready(ctx context.Context) Report {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	names := make([]string, 0, len(s.Checks))
	for name := range s.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := s.Checks[name](checkCtx); err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = "ok"
		}()
	}
	wg.Wait()

	report := Report{OK: true, Checks: make(map[string]string, len(names))}
	for i, name := range names {
		report.Checks[name] = results[i]
		if results[i] != "ok" {
			report.OK = false
		}
	}
	return report
}
