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

package integration

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rime-sim/rime-solver-runtime/pkg/budget"
	"github.com/rime-sim/rime-solver-runtime/pkg/device"
	"github.com/rime-sim/rime-solver-runtime/pkg/dims"
	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
	"github.com/rime-sim/rime-solver-runtime/pkg/pipeline"
	"github.com/rime-sim/rime-solver-runtime/pkg/rime"
	"github.com/rime-sim/rime-solver-runtime/pkg/solver"
)

func problemConfig() solver.Config {
	return solver.Config{
		Dims: dims.Config{
			Antennas:        7,
			Channels:        16,
			Timesteps:       20,
			PointSources:    10,
			GaussianSources: 5,
		},
		Precision: dtype.Float64,
	}
}

var _ = Describe("Solver lifecycle", func() {
	var (
		ctx context.Context
		sim *device.Sim
	)

	BeforeEach(func() {
		ctx = context.Background()
		sim = device.NewSim()
	})

	It("runs register, execute and shutdown leak-free", func() {
		s, err := solver.New(ctx, problemConfig(), sim, sim, rime.Stages()...)
		Expect(err).NotTo(HaveOccurred())

		err = s.Run(ctx, func(ctx context.Context, s *solver.Solver) error {
			reg := s.Registry()
			Expect(reg.DeviceBytesRequired()).To(BeNumerically(">", 0))

			// Device requirements include every registered array.
			for _, name := range []string{rime.UVW, rime.LM, rime.ObservedVis, rime.ModelVis} {
				_, ok := reg.Lookup(name)
				Expect(ok).To(BeTrue(), "array %q should be registered", name)
			}
			Expect(sim.AllocatedBytes()).To(Equal(reg.DeviceBytesRequired()))

			return s.Execute(ctx)
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(sim.AllocatedBytes()).To(BeZero())
		Expect(sim.ActiveScopes()).To(BeZero())
	})

	It("keeps dimension identities consistent for the registered geometry", func() {
		s, err := solver.New(ctx, problemConfig(), sim, sim, rime.Stages()...)
		Expect(err).NotTo(HaveOccurred())

		snap := s.Dimensions()
		Expect(snap[dims.Baselines]).To(Equal(7 * 6 / 2))
		Expect(snap[dims.Sources]).To(Equal(15))
		Expect(snap[dims.Visibilities]).To(Equal(snap[dims.Timesteps] * snap[dims.Baselines] * snap[dims.Channels]))
	})

	It("rolls back initialised stages when a later stage fails", func() {
		boom := errors.New("device probe failed")
		var shutdowns []string

		witness := &pipeline.StageFuncs{
			StageName: "witness",
			OnShutdown: func(ctx context.Context) error {
				shutdowns = append(shutdowns, "witness")
				return nil
			},
		}
		failing := &pipeline.StageFuncs{
			StageName:    "failing",
			OnInitialise: func(ctx context.Context) error { return boom },
		}

		s, err := solver.New(ctx, problemConfig(), sim, sim, witness, failing)
		Expect(err).NotTo(HaveOccurred())

		err = s.Initialise(ctx)
		Expect(err).To(MatchError(boom))

		var initErr *pipeline.InitError
		Expect(errors.As(err, &initErr)).To(BeTrue())
		Expect(initErr.Stage).To(Equal("failing"))

		Expect(shutdowns).To(Equal([]string{"witness"}))
		Expect(s.Pipeline().State()).To(Equal(pipeline.Uninitialised))
		Expect(sim.ActiveScopes()).To(BeZero())
	})

	It("surfaces allocation failures from array registration", func() {
		sim.FailAllocationsAfter(3)

		s, err := solver.New(ctx, problemConfig(), sim, sim, rime.Stages()...)
		Expect(err).NotTo(HaveOccurred())

		err = s.Initialise(ctx)
		Expect(err).To(HaveOccurred())
		Expect(s.Pipeline().State()).To(Equal(pipeline.Uninitialised))
		Expect(sim.ActiveScopes()).To(BeZero())
	})

	It("still releases storage when execution fails", func() {
		boom := errors.New("kernel diverged")
		kernel := &pipeline.StageFuncs{
			StageName: "kernel",
			OnExecute: func(ctx context.Context) error { return boom },
		}

		stages := append(rime.Stages(), kernel)
		s, err := solver.New(ctx, problemConfig(), sim, sim, stages...)
		Expect(err).NotTo(HaveOccurred())

		err = s.Run(ctx, func(ctx context.Context, s *solver.Solver) error {
			return s.Execute(ctx)
		})
		Expect(err).To(MatchError(boom))

		var execErr *pipeline.ExecError
		Expect(errors.As(err, &execErr)).To(BeTrue())
		Expect(execErr.Stage).To(Equal("kernel"))
		Expect(execErr.Phase).To(Equal("execute"))

		Expect(sim.AllocatedBytes()).To(BeZero())
		Expect(sim.ActiveScopes()).To(BeZero())
	})
})

var _ = Describe("Budget planning end to end", func() {
	var (
		ctx context.Context
		sim *device.Sim
	)

	BeforeEach(func() {
		ctx = context.Background()
		sim = device.NewSim()
	})

	newSolver := func(cfg solver.Config) *solver.Solver {
		s, err := solver.New(ctx, cfg, sim, sim, rime.Stages()...)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Initialise(ctx)).To(Succeed())
		DeferCleanup(func() { Expect(s.Shutdown(ctx)).To(Succeed()) })
		return s
	}

	It("reproduces the registry's byte accounting through the cost model", func() {
		s := newSolver(problemConfig())

		model, err := s.PlanBudget()
		Expect(err).NotTo(HaveOccurred())
		Expect(model.Total(20)).To(Equal(s.Registry().BytesRequired()))
		Expect(model.PerUnit).To(BeNumerically(">", 0))
	})

	It("splits a budgeted problem into chunks that each fit", func() {
		cfg := problemConfig()
		cfg.MemoryBudget = s200KiB()

		s := newSolver(cfg)

		model, err := s.PlanBudget()
		Expect(err).NotTo(HaveOccurred())

		viable, err := model.Viable(cfg.MemoryBudget)
		Expect(err).NotTo(HaveOccurred())

		sizes, err := s.PlanChunks(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sizes).NotTo(BeEmpty())

		total := 0
		for _, size := range sizes {
			total += size
			Expect(size).To(BeNumerically("<=", viable))
		}
		Expect(total).To(Equal(20))
	})

	It("solves every chunk on its own device handle", func() {
		cfg := problemConfig()
		cfg.MemoryBudget = s200KiB()

		s := newSolver(cfg)
		sizes, err := s.PlanChunks(ctx)
		Expect(err).NotTo(HaveOccurred())

		cfgs, err := s.ChunkConfigs(sizes)
		Expect(err).NotTo(HaveOccurred())

		sims := make([]*device.Sim, len(cfgs))
		factory := func(ctx context.Context, index int, cfg solver.Config) (*solver.Solver, error) {
			sims[index] = device.NewSim()
			return solver.New(ctx, cfg, sims[index], sims[index], rime.Stages()...)
		}

		Expect(solver.SolveChunks(ctx, cfgs, factory, 2)).To(Succeed())
		for _, chunkSim := range sims {
			Expect(chunkSim.AllocatedBytes()).To(BeZero())
			Expect(chunkSim.ActiveScopes()).To(BeZero())
		}
	})

	It("rejects a budget too small for even one scaling unit", func() {
		s := newSolver(problemConfig())

		model, err := s.PlanBudget()
		Expect(err).NotTo(HaveOccurred())

		_, err = model.ChunksFor(20, model.Fixed)
		var insufficient *budget.InsufficientBudgetError
		Expect(errors.As(err, &insufficient)).To(BeTrue())
	})
})

var _ = Describe("Solver report", func() {
	It("describes the problem and its arrays", func() {
		ctx := context.Background()
		sim := device.NewSim()

		s, err := solver.New(ctx, problemConfig(), sim, sim, rime.Stages()...)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Initialise(ctx)).To(Succeed())
		DeferCleanup(func() { Expect(s.Shutdown(ctx)).To(Succeed()) })

		var b strings.Builder
		Expect(s.Report(&b)).To(Succeed())

		out := b.String()
		Expect(out).To(ContainSubstring("Problem Dimensions"))
		Expect(out).To(ContainSubstring(rime.UVW))
		Expect(out).To(ContainSubstring(rime.ModelVis))
		Expect(out).To(ContainSubstring(rime.SigmaSquared))
	})
})

// s200KiB keeps the chunk tests' budget in one place.
func s200KiB() int64 { return 200 * 1024 }
