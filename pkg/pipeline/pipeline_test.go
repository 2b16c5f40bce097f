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

package pipeline

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// recordingStage appends "<name>:<phase>" to a shared trace so specs can
// assert on exact call ordering.
type recordingStage struct {
	name   string
	trace  *[]string
	failAt string // phase name that should fail, "" for none
}

func (s *recordingStage) hook(phase string) error {
	*s.trace = append(*s.trace, s.name+":"+phase)
	if s.failAt == phase {
		return fmt.Errorf("%s deliberately failed %s", s.name, phase)
	}
	return nil
}

func (s *recordingStage) Name() string                          { return s.name }
func (s *recordingStage) Initialise(context.Context) error      { return s.hook("initialise") }
func (s *recordingStage) PreExecute(context.Context) error      { return s.hook("pre-execute") }
func (s *recordingStage) Execute(context.Context) error         { return s.hook("execute") }
func (s *recordingStage) PostExecute(context.Context) error     { return s.hook("post-execute") }
func (s *recordingStage) Shutdown(ctx context.Context) error    { return s.hook("shutdown") }

var _ = Describe("Pipeline lifecycle", func() {
	var (
		trace  []string
		ctx    context.Context
		stages []*recordingStage
	)

	build := func(names ...string) *Pipeline {
		trace = nil
		stages = nil
		all := make([]Stage, 0, len(names))
		for _, n := range names {
			s := &recordingStage{name: n, trace: &trace}
			stages = append(stages, s)
			all = append(all, s)
		}
		return New(all...)
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("initialises stages in order and shuts down in reverse", func() {
		p := build("a", "b", "c")

		Expect(p.Initialise(ctx)).To(Succeed())
		Expect(p.State()).To(Equal(Initialised))
		Expect(p.Shutdown(ctx)).To(Succeed())
		Expect(p.State()).To(Equal(ShutDown))

		Expect(trace).To(Equal([]string{
			"a:initialise", "b:initialise", "c:initialise",
			"c:shutdown", "b:shutdown", "a:shutdown",
		}))
	})

	It("runs pre-execute, execute and post-execute per stage in order", func() {
		p := build("a", "b")
		Expect(p.Initialise(ctx)).To(Succeed())
		trace = nil

		Expect(p.Execute(ctx)).To(Succeed())
		Expect(trace).To(Equal([]string{
			"a:pre-execute", "a:execute", "a:post-execute",
			"b:pre-execute", "b:execute", "b:post-execute",
		}))
	})

	It("rolls back initialised stages when a middle stage fails initialise", func() {
		p := build("a", "b", "c")
		stages[1].failAt = "initialise"

		err := p.Initialise(ctx)

		var initErr *InitError
		Expect(errors.As(err, &initErr)).To(BeTrue())
		Expect(initErr.Stage).To(Equal("b"))
		// Stage a was initialised and must be shut down; stage c is never
		// touched in either direction.
		Expect(trace).To(Equal([]string{
			"a:initialise", "b:initialise", "a:shutdown",
		}))
		Expect(p.State()).To(Equal(Uninitialised))
	})

	It("aborts execute on the first failing phase without shutting down", func() {
		p := build("a", "b", "c")
		stages[1].failAt = "execute"
		Expect(p.Initialise(ctx)).To(Succeed())
		trace = nil

		err := p.Execute(ctx)

		var execErr *ExecError
		Expect(errors.As(err, &execErr)).To(BeTrue())
		Expect(execErr.Stage).To(Equal("b"))
		Expect(execErr.Phase).To(Equal("execute"))
		Expect(trace).To(Equal([]string{
			"a:pre-execute", "a:execute", "a:post-execute",
			"b:pre-execute", "b:execute",
		}))
		// The pipeline stays initialised; the owning solver decides whether
		// to shut down.
		Expect(p.State()).To(Equal(Initialised))
	})

	It("collects shutdown failures so every stage gets its attempt", func() {
		p := build("a", "b", "c")
		stages[0].failAt = "shutdown"
		stages[2].failAt = "shutdown"
		Expect(p.Initialise(ctx)).To(Succeed())
		trace = nil

		err := p.Shutdown(ctx)

		var shutErr *ShutdownError
		Expect(errors.As(err, &shutErr)).To(BeTrue())
		// Reverse order: c first, then b, then a.
		Expect(shutErr.Stages).To(Equal([]string{"c", "a"}))
		Expect(trace).To(Equal([]string{"c:shutdown", "b:shutdown", "a:shutdown"}))
		Expect(p.State()).To(Equal(ShutDown))
	})

	It("rejects execute before initialise", func() {
		p := build("a")
		err := p.Execute(ctx)
		var stateErr *StateError
		Expect(errors.As(err, &stateErr)).To(BeTrue())
	})

	It("rejects double initialise", func() {
		p := build("a")
		Expect(p.Initialise(ctx)).To(Succeed())
		var stateErr *StateError
		Expect(errors.As(p.Initialise(ctx), &stateErr)).To(BeTrue())
	})

	It("treats an empty pipeline as a legal no-op", func() {
		p := New()
		Expect(p.Initialise(ctx)).To(Succeed())
		Expect(p.Execute(ctx)).To(Succeed())
		Expect(p.Shutdown(ctx)).To(Succeed())
	})

	It("can execute repeatedly while initialised", func() {
		p := build("a")
		Expect(p.Initialise(ctx)).To(Succeed())
		Expect(p.Execute(ctx)).To(Succeed())
		Expect(p.Execute(ctx)).To(Succeed())
		Expect(p.Shutdown(ctx)).To(Succeed())
	})

	It("supports partial stages through StageFuncs", func() {
		ran := false
		p := New(&StageFuncs{
			StageName: "execute-only",
			OnExecute: func(context.Context) error { ran = true; return nil },
		})
		Expect(p.Initialise(ctx)).To(Succeed())
		Expect(p.Execute(ctx)).To(Succeed())
		Expect(p.Shutdown(ctx)).To(Succeed())
		Expect(ran).To(BeTrue())
	})
})
