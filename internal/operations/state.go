package operations

import (
	"sync"
	"time"

	"countyvote/internal/analysis"
	"countyvote/internal/config"
	"countyvote/internal/dataprocessing"
	"countyvote/internal/exporter"
	"countyvote/pkg/contracts/domain"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunState is the complete state of one pipeline run. Steps hand their
// outputs to later steps through its fields.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Mode      Mode
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	steps map[string]*StepState
	order []string

	Config *config.Config
	Paths  *config.Paths

	Inputs         *dataprocessing.Inputs
	TopTwo         []domain.TopTwoTally
	Regression     *analysis.Dataset
	Classification *analysis.Dataset

	Report *exporter.Report
}

// NewRunState creates a pending run for cfg
func NewRunState(id string, mode Mode, cfg *config.Config) *RunState {
	return &RunState{
		ID:     id,
		Mode:   mode,
		Status: RunStatusPending,
		steps:  make(map[string]*StepState),
		Config: cfg,
		Paths:  config.NewPaths(cfg.Output.Dir),
		Report: &exporter.Report{
			RunID:     id,
			Candidate: cfg.Analysis.Candidate,
			Seed:      cfg.Analysis.Seed,
		},
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StartTime = time.Now()
	r.Status = RunStatusRunning
	r.Report.StartedAt = r.StartTime
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
	r.Report.Duration = now.Sub(r.StartTime)
}

// Fail marks the run as failed
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Error = err
	r.Report.Duration = now.Sub(r.StartTime)
}

// AddStep registers the state of a step in execution order
func (r *RunState) AddStep(s *StepState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.steps[s.ID]; !ok {
		r.order = append(r.order, s.ID)
	}
	r.steps[s.ID] = s
}

// GetStep returns the state of a step
func (r *RunState) GetStep(id string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.steps[id]
}

// Steps returns the step states in execution order
func (r *RunState) Steps() []*StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*StepState, len(r.order))
	for i, id := range r.order {
		out[i] = r.steps[id]
	}
	return out
}

// note sets the progress message of a step
func (r *RunState) note(id, message string) {
	if s := r.GetStep(id); s != nil {
		s.SetMessage(message)
	}
}

// FailedSteps returns all failed steps
func (r *RunState) FailedSteps() []*StepState {
	var failed []*StepState
	for _, s := range r.Steps() {
		if s.GetStatus() == StepStatusFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// Duration returns the run duration so far
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}
