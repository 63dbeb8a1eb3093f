// Package startup brings service dependencies up in declared order with
// retry, and tears them down in reverse on shutdown.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is a unit of service infrastructure with a managed lifecycle
type Dependency interface {
	Name() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusStopped
	statusFailed
)

// Manager starts and stops registered dependencies. Start retries the whole
// set with Fibonacci backoff until maxAttempts is exhausted.
type Manager struct {
	order        []string
	dependencies map[string]Dependency
	statuses     map[string]status
	logger       ectologger.Logger
	maxAttempts  int
}

func NewManager(logger ectologger.Logger, maxAttempts int) *Manager {
	return &Manager{
		dependencies: make(map[string]Dependency),
		statuses:     make(map[string]status),
		logger:       logger,
		maxAttempts:  maxAttempts,
	}
}

// Add registers a dependency. Registration order is the fallback start order
// when DependsOn does not impose one.
func (m *Manager) Add(dep Dependency) {
	if _, ok := m.dependencies[dep.Name()]; !ok {
		m.order = append(m.order, dep.Name())
	}
	m.dependencies[dep.Name()] = dep
}

func (m *Manager) Start(ctx context.Context) error {
	var lastErr error

	a, b := 1, 1
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		m.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, name := range m.order {
			if err := m.start(ctx, m.dependencies[name]); err != nil {
				m.logger.WithError(err).Errorf("Startup dependency '%s' attempt %d failed", name, attempt)
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}

		if attempt >= m.maxAttempts {
			break
		}

		m.logger.Infof("Retrying in %d seconds (attempt %d/%d)", a, attempt, m.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", m.maxAttempts, lastErr)
}

func (m *Manager) start(ctx context.Context, dep Dependency) error {
	if m.statuses[dep.Name()] == statusStarted {
		return nil
	}

	for _, name := range dep.DependsOn() {
		upstream, ok := m.dependencies[name]
		if !ok {
			return fmt.Errorf("dependency '%s' requires unregistered dependency '%s'", dep.Name(), name)
		}
		if m.statuses[name] != statusStarted {
			if err := m.start(ctx, upstream); err != nil {
				return err
			}
		}
	}

	m.logger.WithField("dependency", dep.Name()).Infof("Starting dependency '%s'", dep.Name())
	m.statuses[dep.Name()] = statusPending
	if err := dep.Start(ctx); err != nil {
		m.statuses[dep.Name()] = statusFailed
		return err
	}
	m.statuses[dep.Name()] = statusStarted
	return nil
}

// Stop tears down started dependencies in reverse registration order
func (m *Manager) Stop(ctx context.Context) error {
	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		if m.statuses[name] != statusStarted {
			continue
		}

		dep := m.dependencies[name]
		m.logger.WithField("dependency", name).Infof("Stopping dependency '%s'", name)
		if err := dep.Stop(ctx); err != nil {
			m.logger.WithError(err).WithField("dependency", name).Errorf("Failed to stop dependency '%s'", name)
			return err
		}
		m.statuses[name] = statusStopped
	}
	return nil
}
