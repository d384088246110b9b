package operations_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"countyvote/internal/operations"
)

func TestNewStepState(t *testing.T) {
	s := operations.NewStepState("load", "Load Inputs")

	assert.Equal(t, "load", s.ID)
	assert.Equal(t, "Load Inputs", s.Name)
	assert.Equal(t, operations.StepStatusPending, s.GetStatus())
	assert.Nil(t, s.StartTime)
	assert.Nil(t, s.EndTime)
	assert.Zero(t, s.Duration())
}

func TestStepStateTransitions(t *testing.T) {
	tests := []struct {
		name        string
		transition  func(*operations.StepState)
		wantStatus  operations.StepStatus
		wantMessage string
		wantErr     bool
	}{
		{
			name: "complete",
			transition: func(s *operations.StepState) {
				s.Start()
				s.Complete("12 counties")
			},
			wantStatus:  operations.StepStatusCompleted,
			wantMessage: "12 counties",
		},
		{
			name: "fail",
			transition: func(s *operations.StepState) {
				s.Start()
				s.Fail(errors.New("boom"))
			},
			wantStatus: operations.StepStatusFailed,
			wantErr:    true,
		},
		{
			name: "skip",
			transition: func(s *operations.StepState) {
				s.Skip("disabled in configuration")
			},
			wantStatus:  operations.StepStatusSkipped,
			wantMessage: "disabled in configuration",
		},
		{
			name: "message while active",
			transition: func(s *operations.StepState) {
				s.Start()
				s.SetMessage("halfway")
			},
			wantStatus:  operations.StepStatusActive,
			wantMessage: "halfway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := operations.NewStepState("x", "X")
			tt.transition(s)

			assert.Equal(t, tt.wantStatus, s.GetStatus())
			assert.Equal(t, tt.wantMessage, s.GetMessage())
			if tt.wantErr {
				assert.Error(t, s.Error)
			} else {
				assert.NoError(t, s.Error)
			}
			if tt.wantStatus != operations.StepStatusActive {
				assert.NotNil(t, s.EndTime)
			}
		})
	}
}

func TestBaseStage(t *testing.T) {
	b := operations.NewBaseStage("merge", "Merge Counties")
	assert.Equal(t, "merge", b.ID())
	assert.Equal(t, "Merge Counties", b.Name())
}
