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

package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/rime-sim/rime-solver-runtime/internal/logging"
	"github.com/rime-sim/rime-solver-runtime/internal/metrics"
	"github.com/rime-sim/rime-solver-runtime/pkg/budget"
	"github.com/rime-sim/rime-solver-runtime/pkg/device"
	"github.com/rime-sim/rime-solver-runtime/pkg/dims"
	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
	"github.com/rime-sim/rime-solver-runtime/pkg/pipeline"
	"github.com/rime-sim/rime-solver-runtime/pkg/registry"
)

// Config describes one solver instance.
type Config struct {
	// Dims are the independent problem dimensions.
	Dims dims.Config

	// Precision selects single or double precision arithmetic. The complex
	// element type is derived from it. Defaults to Float32.
	Precision dtype.Type

	// KeepHostCopies forces host storage for every registered array.
	KeepHostCopies bool

	// PinnedHost requests non-pageable host allocations.
	PinnedHost bool

	// MemoryBudget bounds device memory in bytes. Zero means unbudgeted.
	MemoryBudget int64

	// ScalingDimension is varied by the budget planner to fit the budget.
	// Defaults to the timestep count.
	ScalingDimension string
}

func (c Config) withDefaults() Config {
	if c.Precision == dtype.Invalid {
		c.Precision = dtype.Float32
	}
	if c.ScalingDimension == "" {
		c.ScalingDimension = dims.Timesteps
	}
	return c
}

// Solver aggregates the dimension table, registry, pipeline and device
// context for one problem (or one chunk of a problem).
type Solver struct {
	cfg         Config
	table       *dims.Table
	reg         *registry.Registry
	pipe        *pipeline.Pipeline
	dev         device.Context
	floatType   dtype.Type
	complexType dtype.Type
}

// New validates the configuration and assembles a solver. Validation runs
// before any accelerator resource is touched, so a malformed problem fails
// fast with the specific dimension or type error.
func New(ctx context.Context, cfg Config, dev device.Context, alloc device.Allocator, stages ...pipeline.Stage) (*Solver, error) {
	cfg = cfg.withDefaults()

	ct, err := dtype.ComplexFor(cfg.Precision)
	if err != nil {
		return nil, err
	}
	table, err := dims.New(cfg.Dims)
	if err != nil {
		return nil, err
	}
	if _, err := table.Value(cfg.ScalingDimension); err != nil {
		return nil, err
	}

	reg := registry.New(table, alloc, registry.Options{
		KeepHostCopies: cfg.KeepHostCopies,
		PinnedHost:     cfg.PinnedHost,
		Logger:         logging.FromContext(ctx),
	})

	s := &Solver{
		cfg:         cfg,
		table:       table,
		reg:         reg,
		pipe:        pipeline.New(stages...),
		dev:         dev,
		floatType:   cfg.Precision,
		complexType: ct,
	}
	for _, stage := range stages {
		if b, ok := stage.(Binder); ok {
			b.Bind(s)
		}
	}
	return s, nil
}

// Binder is implemented by stages that need the solver they run under,
// typically to reach its registry or dimension table. New calls Bind once
// the solver is assembled, before any lifecycle phase runs.
type Binder interface {
	Bind(*Solver)
}

// Table returns the solver's dimension table.
func (s *Solver) Table() *dims.Table { return s.table }

// Registry returns the solver's array and property registry.
func (s *Solver) Registry() *registry.Registry { return s.reg }

// Pipeline returns the solver's stage pipeline.
func (s *Solver) Pipeline() *pipeline.Pipeline { return s.pipe }

// FloatType is the configured floating point element type.
func (s *Solver) FloatType() dtype.Type { return s.floatType }

// ComplexType is the complex element type matching the configured precision.
func (s *Solver) ComplexType() dtype.Type { return s.complexType }

// Dimensions returns a read-only snapshot of the dimension table.
func (s *Solver) Dimensions() map[string]int { return s.table.Snapshot() }

// Initialise acquires the device scope and initialises the pipeline.
func (s *Solver) Initialise(ctx context.Context) error {
	return s.withScope(ctx, func(ctx context.Context) error {
		if err := s.pipe.Initialise(ctx); err != nil {
			return err
		}
		metrics.BytesRequired.WithLabelValues("all").Set(float64(s.reg.BytesRequired()))
		metrics.BytesRequired.WithLabelValues("host").Set(float64(s.reg.HostBytesRequired()))
		metrics.BytesRequired.WithLabelValues("device").Set(float64(s.reg.DeviceBytesRequired()))
		return nil
	})
}

// Execute runs the pipeline once inside the device scope.
func (s *Solver) Execute(ctx context.Context) error {
	return s.withScope(ctx, s.pipe.Execute)
}

// Solve ensures the pipeline is initialised, then executes it once.
func (s *Solver) Solve(ctx context.Context) error {
	if s.pipe.State() == pipeline.Uninitialised {
		if err := s.Initialise(ctx); err != nil {
			return err
		}
	}
	return s.Execute(ctx)
}

// Shutdown shuts the pipeline down and releases all registry storage. The
// registry is released even when stage shutdown reported failures.
func (s *Solver) Shutdown(ctx context.Context) error {
	err := s.withScope(ctx, s.pipe.Shutdown)
	s.reg.Release()
	return err
}

// Run is the scoped-acquisition form of the lifecycle: initialise, run f,
// and shut down on every exit path. Errors from f and from shutdown are
// both reported. A failed initialise still shuts down: the pipeline has
// already rolled its stages back, but arrays registered before the failing
// stage hold registry-owned storage that only Shutdown releases.
func (s *Solver) Run(ctx context.Context, f func(ctx context.Context, s *Solver) error) error {
	if err := s.Initialise(ctx); err != nil {
		return errors.Join(err, s.Shutdown(ctx))
	}
	runErr := f(ctx, s)
	shutErr := s.Shutdown(ctx)
	return errors.Join(runErr, shutErr)
}

func (s *Solver) withScope(ctx context.Context, f func(ctx context.Context) error) error {
	scope, err := s.dev.Acquire()
	if err != nil {
		return fmt.Errorf("acquiring device context: %w", err)
	}
	defer scope.Release()
	return f(ctx)
}

// PlanBudget builds the affine cost model for the solver's registered
// arrays over its scaling dimension.
func (s *Solver) PlanBudget() (budget.Model, error) {
	return budget.Plan(s.reg, s.table, s.cfg.ScalingDimension)
}

// PlanChunks splits the current scaling-dimension value into chunk sizes
// that each fit the configured memory budget. An unbudgeted solver yields a
// single chunk holding the full problem.
func (s *Solver) PlanChunks(ctx context.Context) ([]int, error) {
	current, err := s.table.Value(s.cfg.ScalingDimension)
	if err != nil {
		return nil, err
	}
	if s.cfg.MemoryBudget <= 0 {
		return []int{current}, nil
	}
	model, err := s.PlanBudget()
	if err != nil {
		return nil, err
	}
	sizes, err := model.ChunksFor(current, s.cfg.MemoryBudget)
	if err != nil {
		return nil, err
	}
	metrics.ChunksPlanned.Add(float64(len(sizes)))
	logging.FromContext(ctx).Info("planned chunks",
		"dimension", s.cfg.ScalingDimension, "total", current,
		"budgetBytes", s.cfg.MemoryBudget, "chunks", sizes)
	return sizes, nil
}

// ChunkConfigs derives one config per chunk size, identical to the parent
// except for the scaling dimension's value. Only dimensions that are
// independent inputs can be chunked.
func (s *Solver) ChunkConfigs(sizes []int) ([]Config, error) {
	out := make([]Config, len(sizes))
	for i, size := range sizes {
		cfg := s.cfg
		switch s.cfg.ScalingDimension {
		case dims.Timesteps:
			cfg.Dims.Timesteps = size
		case dims.Channels:
			cfg.Dims.Channels = size
		default:
			return nil, fmt.Errorf("cannot chunk over dimension %q: not an independent input", s.cfg.ScalingDimension)
		}
		cfg.MemoryBudget = 0 // each chunk already fits
		out[i] = cfg
	}
	return out, nil
}

// ChunkFactory builds the solver for one chunk. Each chunk must own its own
// registry and device handle; the factory is where callers supply them,
// along with fresh stage instances.
type ChunkFactory func(ctx context.Context, index int, cfg Config) (*Solver, error)

// SolveChunks runs one solver per chunk config on its own worker goroutine.
// Chunks share no mutable state, so they may run concurrently; workers
// bounds the parallelism (0 means one worker per chunk). Errors from all
// chunks are aggregated after every chunk has finished.
func SolveChunks(ctx context.Context, cfgs []Config, factory ChunkFactory, workers int) error {
	if len(cfgs) == 0 {
		return nil
	}
	if workers <= 0 || workers > len(cfgs) {
		workers = len(cfgs)
	}

	jobs := make(chan int)
	errs := make([]error, len(cfgs))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = solveChunk(ctx, i, cfgs[i], factory)
			}
		}()
	}
	for i := range cfgs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return errors.Join(errs...)
}

func solveChunk(ctx context.Context, index int, cfg Config, factory ChunkFactory) error {
	s, err := factory(ctx, index, cfg)
	if err != nil {
		return fmt.Errorf("chunk %d: %w", index, err)
	}
	if err := s.Run(ctx, func(ctx context.Context, s *Solver) error {
		return s.Execute(ctx)
	}); err != nil {
		return fmt.Errorf("chunk %d: %w", index, err)
	}
	return nil
}

// Report writes a human-readable summary of the problem dimensions, memory
// requirements and registered arrays/properties.
func (s *Solver) Report(w io.Writer) error {
	snap := s.table.Snapshot()
	rows := []struct {
		label string
		dim   string
	}{
		{"Antennas", dims.Antennas},
		{"Baselines", dims.Baselines},
		{"Channels", dims.Channels},
		{"Timesteps", dims.Timesteps},
		{"Point Sources", dims.PointSources},
		{"Gaussian Sources", dims.GaussianSources},
		{"Sersic Sources", dims.SersicSources},
	}
	fmt.Fprintln(w, "Problem Dimensions")
	for _, r := range rows {
		fmt.Fprintf(w, "%-20s: %d\n", r.label, snap[r.dim])
	}
	fmt.Fprintf(w, "%-20s: %s\n", "Host Memory", registry.FormatBytes(s.reg.HostBytesRequired()))
	fmt.Fprintf(w, "%-20s: %s\n", "Device Memory", registry.FormatBytes(s.reg.DeviceBytesRequired()))
	fmt.Fprintln(w)
	return s.reg.Report(w)
}

// String renders the report for logging and error messages.
func (s *Solver) String() string {
	var b strings.Builder
	if err := s.Report(&b); err != nil {
		return fmt.Sprintf("<unreportable solver: %v>", err)
	}
	return b.String()
}

// Logger is a convenience for stages that want the solver's context logger.
func Logger(ctx context.Context) logr.Logger { return logging.FromContext(ctx) }
