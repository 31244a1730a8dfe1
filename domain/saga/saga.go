// Package saga runs multi-step operations that have no enclosing database transaction.
// Each step may register a compensation; when a later step fails, the completed steps are
// compensated in reverse order.
package saga

import (
	"context"
	"errors"
	"fmt"

	"prizeledger/domain"

	log "github.com/sirupsen/logrus"
)

// Step is one forward action and the action that undoes it
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error // nil when the step has nothing to undo
}

// Saga is an ordered list of steps executed forward-or-compensate
type Saga struct {
	name      string
	steps     []Step
	stateFn   func() map[string]any
	completed []string
}

// New creates an empty saga
func New(name string) *Saga {
	return &Saga{name: name}
}

// AddStep appends a step
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// WithState registers a snapshot function logged when compensation fails
func (s *Saga) WithState(fn func() map[string]any) *Saga {
	s.stateFn = fn
	return s
}

// Completed returns the names of the steps that executed successfully, in order
func (s *Saga) Completed() []string {
	return append([]string(nil), s.completed...)
}

// Run executes the steps in order. If a step fails, every completed step is compensated in
// reverse and the step error is returned. If a compensation fails, Run stops compensating
// and returns a *domain.CompensationError.
func (s *Saga) Run(ctx context.Context) error {
	s.completed = s.completed[:0]

	for i, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			return s.compensate(ctx, i, step.Name, err)
		}
		s.completed = append(s.completed, step.Name)
	}
	return nil
}

// compensate undoes steps [0, failedAt) in reverse order
func (s *Saga) compensate(ctx context.Context, failedAt int, failedStep string, cause error) error {
	if failedAt == 0 {
		return fmt.Errorf("%s: %s: %w", s.name, failedStep, cause)
	}

	// Compensation must finish even if the caller gave up on the request
	compCtx := context.WithoutCancel(ctx)

	log.WithFields(log.Fields{
		"saga":       s.name,
		"failedStep": failedStep,
		"error":      cause,
		"toUndo":     failedAt,
	}).Warn("Saga step failed, compensating")

	for i := failedAt - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(compCtx); err != nil {
			compErr := &domain.CompensationError{
				Saga:             s.name,
				FailedStep:       failedStep,
				CompensatingStep: step.Name,
				Cause:            cause,
				CompensationErr:  err,
				State:            s.snapshot(),
			}
			log.WithFields(log.Fields{
				"saga":             s.name,
				"failedStep":       failedStep,
				"compensatingStep": step.Name,
				"cause":            cause,
				"error":            err,
				"completedSteps":   s.completed,
				"state":            compErr.State,
			}).Error("Saga compensation failed, manual reconciliation required")
			return compErr
		}
		log.WithFields(log.Fields{
			"saga": s.name,
			"step": step.Name,
		}).Debug("Compensated saga step")
	}

	return fmt.Errorf("%s: %s: %w", s.name, failedStep, cause)
}

func (s *Saga) snapshot() map[string]any {
	if s.stateFn == nil {
		return nil
	}
	return s.stateFn()
}

// IsCompensationFailure reports whether err came from a failed compensation
func IsCompensationFailure(err error) bool {
	var compErr *domain.CompensationError
	return errors.As(err, &compErr)
}
