/*
Copyright 2025 The rime-sim Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package pipeline drives an ordered sequence of processing stages through
// a fixed initialise/execute/shutdown lifecycle.
//
// Stages are the runtime's plugin surface: each wraps one unit of
// computation (typically a set of accelerator kernels) behind the uniform
// contract of Initialise, PreExecute, Execute, PostExecute and Shutdown.
// The pipeline guarantees strict ordering: stages initialise in
// registration order and shut down in reverse, and only stages that
// initialised successfully are ever shut down. A failure during initialise
// rolls the already-initialised prefix back before the error propagates; a
// failure during shutdown never prevents the remaining stages from getting
// their shutdown attempt.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rime-sim/rime-solver-runtime/internal/logging"
	"github.com/rime-sim/rime-solver-runtime/internal/metrics"
)

// State is the pipeline lifecycle state. Transitions are linear:
// Uninitialised -> Initialised -> Executing -> ShutDown, with Executing
// returning to Initialised after each run.
type State int

const (
	Uninitialised State = iota
	Initialised
	Executing
	ShutDown
)

func (s State) String() string {
	switch s {
	case Uninitialised:
		return "uninitialised"
	case Initialised:
		return "initialised"
	case Executing:
		return "executing"
	case ShutDown:
		return "shut down"
	default:
		return "unknown"
	}
}

// Stage is one unit of pipeline work. Implementations only need behaviour
// in the hooks they care about; the rest can be no-ops (see StageFuncs).
type Stage interface {
	// Name identifies the stage in errors, logs and metrics.
	Name() string

	Initialise(ctx context.Context) error
	PreExecute(ctx context.Context) error
	Execute(ctx context.Context) error
	PostExecute(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// InitError wraps a stage's initialise failure, naming the failing stage.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("stage %q failed to initialise: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ExecError wraps a stage failure during one of the execute phases.
type ExecError struct {
	Stage string
	Phase string
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("stage %q failed during %s: %v", e.Stage, e.Phase, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ShutdownError aggregates one or more stage shutdown failures. Every stage
// gets a shutdown attempt before the aggregate is reported.
type ShutdownError struct {
	Stages []string
	Err    error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown failed for stages %v: %v", e.Stages, e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }

// StateError reports an operation attempted in the wrong lifecycle state.
type StateError struct {
	Op   string
	Have State
	Want State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: pipeline is %s, must be %s", e.Op, e.Have, e.Want)
}

// Pipeline owns an ordered sequence of stages. The order is fixed at
// construction and defines both the initialise and (reversed) shutdown
// order. An empty pipeline is legal and executes as a no-op.
type Pipeline struct {
	stages      []Stage
	initialised []bool
	state       State
}

// New builds a pipeline over the given stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:      stages,
		initialised: make([]bool, len(stages)),
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.state }

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Initialise runs every stage's initialise hook in registration order. On
// the first failure the remaining stages are skipped, the already
// initialised stages are shut down in reverse order, and an InitError
// naming the failing stage propagates.
func (p *Pipeline) Initialise(ctx context.Context) error {
	if p.state != Uninitialised {
		return &StateError{Op: "initialise", Have: p.state, Want: Uninitialised}
	}
	log := logging.FromContext(ctx)

	for i, stage := range p.stages {
		if err := p.timed(ctx, stage, "initialise", stage.Initialise); err != nil {
			metrics.LifecycleFailures.WithLabelValues("initialise").Inc()
			log.Error(err, "stage initialise failed, rolling back", "stage", stage.Name())
			// Best-effort rollback of the initialised prefix.
			if shutErr := p.shutdownInitialised(ctx); shutErr != nil {
				log.Error(shutErr, "rollback shutdown reported failures")
			}
			p.state = Uninitialised
			return &InitError{Stage: stage.Name(), Err: err}
		}
		p.initialised[i] = true
		log.V(1).Info("stage initialised", "stage", stage.Name())
	}

	p.state = Initialised
	log.Info("pipeline initialised", "stages", len(p.stages))
	return nil
}

// Execute runs pre-execute, execute and post-execute for each stage in
// order. It requires the Initialised state. A failure aborts the run and
// propagates as an ExecError; no automatic shutdown is performed here, the
// owning solver context is responsible for that.
func (p *Pipeline) Execute(ctx context.Context) error {
	if p.state != Initialised {
		return &StateError{Op: "execute", Have: p.state, Want: Initialised}
	}
	p.state = Executing
	defer func() { p.state = Initialised }()
	log := logging.FromContext(ctx)

	for _, stage := range p.stages {
		for _, phase := range []struct {
			name string
			fn   func(context.Context) error
		}{
			{"pre-execute", stage.PreExecute},
			{"execute", stage.Execute},
			{"post-execute", stage.PostExecute},
		} {
			if err := p.timed(ctx, stage, phase.name, phase.fn); err != nil {
				metrics.LifecycleFailures.WithLabelValues(phase.name).Inc()
				return &ExecError{Stage: stage.Name(), Phase: phase.name, Err: err}
			}
		}
		log.V(1).Info("stage executed", "stage", stage.Name())
	}
	return nil
}

// Shutdown runs every successfully-initialised stage's shutdown hook in
// reverse registration order. Individual failures are collected, not
// raised, so every stage gets a shutdown attempt; if any occurred they are
// reported together as a ShutdownError.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	if p.state == ShutDown {
		return nil
	}
	err := p.shutdownInitialised(ctx)
	p.state = ShutDown
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("pipeline shut down", "stages", len(p.stages))
	return nil
}

func (p *Pipeline) shutdownInitialised(ctx context.Context) error {
	log := logging.FromContext(ctx)
	var failed []string
	var errs []error

	for i := len(p.stages) - 1; i >= 0; i-- {
		if !p.initialised[i] {
			continue
		}
		stage := p.stages[i]
		if err := p.timed(ctx, stage, "shutdown", stage.Shutdown); err != nil {
			metrics.LifecycleFailures.WithLabelValues("shutdown").Inc()
			log.Error(err, "stage shutdown failed", "stage", stage.Name())
			failed = append(failed, stage.Name())
			errs = append(errs, fmt.Errorf("stage %q: %w", stage.Name(), err))
		}
		p.initialised[i] = false
	}

	if len(errs) > 0 {
		return &ShutdownError{Stages: failed, Err: errors.Join(errs...)}
	}
	return nil
}

func (p *Pipeline) timed(ctx context.Context, stage Stage, phase string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(stage.Name(), phase).Observe(time.Since(start).Seconds())
	return err
}
