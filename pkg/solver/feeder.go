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
	"fmt"

	"github.com/rime-sim/rime-solver-runtime/pkg/dims"
	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
	"github.com/rime-sim/rime-solver-runtime/pkg/pipeline"
	"github.com/rime-sim/rime-solver-runtime/pkg/registry"
)

// Feeder supplies array contents for a window of the problem. The returned
// bytes must match the array's registered type and the shape implied by the
// window; the registry's transfer path validates both.
type Feeder interface {
	Feed(name string, window dims.Window) ([]byte, []int, dtype.Type, error)
}

// FeedStage transfers data from a Feeder into named arrays during the
// pre-execute phase. Arrays must already be registered by an earlier stage
// or by the caller.
type FeedStage struct {
	Arrays []string
	Source Feeder
	Window dims.Window
	solver *Solver
}

// NewFeedStage builds a feed stage bound to the given solver.
func NewFeedStage(s *Solver, source Feeder, window dims.Window, arrays ...string) *FeedStage {
	return &FeedStage{Arrays: arrays, Source: source, Window: window, solver: s}
}

func (f *FeedStage) Name() string { return "feed" }

func (f *FeedStage) Initialise(ctx context.Context) error { return nil }

func (f *FeedStage) PreExecute(ctx context.Context) error {
	for _, name := range f.Arrays {
		handle, ok := f.solver.Registry().Lookup(name)
		if !ok {
			return &registry.UnknownArrayError{Name: name}
		}
		data, shape, typ, err := f.Source.Feed(name, f.Window)
		if err != nil {
			return fmt.Errorf("feeding array %q: %w", name, err)
		}
		if err := handle.Transfer(data, shape, typ); err != nil {
			return fmt.Errorf("transferring array %q: %w", name, err)
		}
	}
	return nil
}

func (f *FeedStage) Execute(ctx context.Context) error     { return nil }
func (f *FeedStage) PostExecute(ctx context.Context) error { return nil }
func (f *FeedStage) Shutdown(ctx context.Context) error    { return nil }

var _ pipeline.Stage = (*FeedStage)(nil)
