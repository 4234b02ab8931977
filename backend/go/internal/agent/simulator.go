package agent

import (
	"AgentDeck/backend/go/internal/models"
	"context"
	"fmt"
	"time"
)

// DefaultProgressInterval is how often a running agent reports progress.
const DefaultProgressInterval = 500 * time.Millisecond

// Reporter receives every progress update of a run. It is called from the
// goroutine executing Run, so concurrent runs call it concurrently.
type Reporter func(update models.AgentUpdateEvent)

// Simulator pretends to execute agents: it reports randomized progress on a
// ticker for the agent's configured duration and then returns canned output.
type Simulator struct {
	registry *LocalRegistry
	interval time.Duration
	rand     Rand
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithProgressInterval sets the progress tick.
func WithProgressInterval(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRand sets the random source used for progress values and template counts.
func WithRand(r Rand) SimulatorOption {
	return func(s *Simulator) {
		if r != nil {
			s.rand = r
		}
	}
}

// NewSimulator creates a Simulator over registry.
func NewSimulator(registry *LocalRegistry, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		registry: registry,
		interval: DefaultProgressInterval,
		rand:     DefaultRand(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the simulator draws specs from.
func (s *Simulator) Registry() *LocalRegistry {
	return s.registry
}

// Run simulates one agent for taskID. It reports a starting update at 0%,
// a running update with progress in [20,95) on every tick, and a completed
// update at 100% carrying the result, which it also returns.
// Run only fails for unknown agent kinds or when ctx ends first.
func (s *Simulator) Run(ctx context.Context, taskID string, t models.AgentType, subtask string, report Reporter) (string, error) {
	spec, err := s.registry.Get(t)
	if err != nil {
		return "", err
	}
	name := spec.Descriptor.Name

	report(models.AgentUpdateEvent{
		TaskID:    taskID,
		AgentType: t,
		Status:    models.AgentRunRunning,
		Progress:  0,
		Message:   fmt.Sprintf("Starting %s...", name),
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	done := time.NewTimer(spec.Duration)
	defer done.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			report(models.AgentUpdateEvent{
				TaskID:    taskID,
				AgentType: t,
				Status:    models.AgentRunRunning,
				Progress:  between(s.rand, 20, 75),
				Message:   fmt.Sprintf("%s is working on: %s", name, subtask),
			})
		case <-done.C:
			result := spec.Render(s.rand)
			report(models.AgentUpdateEvent{
				TaskID:    taskID,
				AgentType: t,
				Status:    models.AgentRunCompleted,
				Progress:  100,
				Message:   result,
			})
			return result, nil
		}
	}
}
