package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Step is one fallible effect of a multi-store operation. Compensate, when
// set, undoes Run; steps without it leave their effect behind if a later
// step fails.
type Step struct {
	Name       string
	Source     string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

func (s Step) Compensable() bool { return s.Compensate != nil }

// Sequence runs steps in order and stops at the first failure.
type Sequence []Step

// StepError reports the failed step and the earlier steps whose effects are
// still applied after compensation.
type StepError struct {
	Step    string
	Applied []string
	Err     error
}

func (e *StepError) Error() string {
	if len(e.Applied) == 0 {
		return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %q failed (left applied: %s): %v", e.Step, strings.Join(e.Applied, ", "), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (s Sequence) Run(ctx context.Context) error {
	for i, step := range s {
		if err := step.Run(ctx); err != nil {
			return &StepError{
				Step:    step.Name,
				Applied: compensate(ctx, s[:i]),
				Err:     &StoreError{Source: step.Source, Op: step.Name, Err: err},
			}
		}
	}
	return nil
}

// Uncompensable names the steps that cannot be rolled back.
func (s Sequence) Uncompensable() []string {
	var names []string
	for _, step := range s {
		if !step.Compensable() {
			names = append(names, step.Name)
		}
	}
	return names
}

// compensate undoes done in reverse order and returns, in execution order,
// the steps that remain applied.
func compensate(ctx context.Context, done Sequence) []string {
	var applied []string
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if !step.Compensable() {
			applied = append(applied, step.Name)
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			slog.WarnContext(ctx, "Compensation failed", "step", step.Name, "source", step.Source, "err", err)
			applied = append(applied, step.Name)
		}
	}
	slices.Reverse(applied)
	return applied
}
