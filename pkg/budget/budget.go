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

// Package budget plans how a problem fits a fixed memory budget.
//
// Total storage cost is decomposed into an affine function of one chosen
// "scaling dimension" (normally the timestep count): records whose symbolic
// shapes reference the dimension contribute per-unit cost, everything else
// is fixed. From total(x) = a + b*x the planner answers two questions: what
// is the largest feasible value of the dimension under a byte budget, and
// how should a large value be split into independently-solvable chunks.
package budget

import (
	"fmt"

	"github.com/rime-sim/rime-solver-runtime/pkg/dims"
	"github.com/rime-sim/rime-solver-runtime/pkg/registry"
	"github.com/rime-sim/rime-solver-runtime/pkg/shape"
)

// InsufficientBudgetError reports a byte budget that admits no feasible
// value of the scaling dimension.
type InsufficientBudgetError struct {
	Budget  int64
	Fixed   int64
	PerUnit int64
}

func (e *InsufficientBudgetError) Error() string {
	return fmt.Sprintf("budget of %d bytes is insufficient: fixed cost is %d bytes plus %d bytes per scaling unit",
		e.Budget, e.Fixed, e.PerUnit)
}

// NoScalingArraysError reports a plan over a dimension no registered array
// references, which leaves nothing to shrink.
type NoScalingArraysError struct {
	Dimension string
}

func (e *NoScalingArraysError) Error() string {
	return fmt.Sprintf("no registered array references scaling dimension %q", e.Dimension)
}

// Model is the affine byte-cost decomposition total(x) = Fixed + PerUnit*x
// over the scaling dimension.
type Model struct {
	ScalingDimension string
	Fixed            int64
	PerUnit          int64
}

// Plan builds the affine cost model for the registry's records over the
// scaling dimension.
//
// It asserts that the model reproduces the registry's exact byte accounting
// at the dimension's current value. A mismatch means some record's shape is
// non-affine in the scaling dimension, which is a programming error rather
// than a runtime condition, so Plan panics.
func Plan(reg *registry.Registry, table *dims.Table, scalingDim string) (Model, error) {
	if _, err := table.Value(scalingDim); err != nil {
		return Model{}, err
	}
	exclude := map[string]struct{}{scalingDim: {}}

	m := Model{ScalingDimension: scalingDim}
	for _, rec := range reg.Records() {
		resolved, err := shape.Resolve(rec.SymbolicShape, table, exclude)
		if err != nil {
			return Model{}, err
		}
		cost := int64(shape.Product(resolved)) * int64(rec.Dtype.Size())
		if rec.SymbolicShape.References(scalingDim) {
			m.PerUnit += cost
		} else {
			m.Fixed += cost
		}
	}

	current, err := table.Value(scalingDim)
	if err != nil {
		return Model{}, err
	}
	if got, want := m.Total(current), reg.BytesRequired(); got != want {
		panic(fmt.Sprintf("budget: cost model %d + %d*%d = %d disagrees with registry bytes %d; a record's shape is non-affine in %q",
			m.Fixed, m.PerUnit, current, got, want, scalingDim))
	}
	return m, nil
}

// Total is the modelled byte cost at scaling-dimension value x.
func (m Model) Total(x int) int64 {
	return m.Fixed + m.PerUnit*int64(x)
}

// Viable returns the largest scaling-dimension value whose total cost fits
// the budget: floor((budget - a + b - 1) / b), clamped at zero. A value of
// zero is reported as InsufficientBudgetError since no work would fit.
func (m Model) Viable(budget int64) (int, error) {
	if m.PerUnit <= 0 {
		return 0, &NoScalingArraysError{Dimension: m.ScalingDimension}
	}
	if budget < 0 {
		budget = 0
	}
	x := (budget - m.Fixed + m.PerUnit - 1) / m.PerUnit
	if x <= 0 {
		return 0, &InsufficientBudgetError{Budget: budget, Fixed: m.Fixed, PerUnit: m.PerUnit}
	}
	return int(x), nil
}

// Split divides n units of the scaling dimension into k ordered chunks as
// evenly as possible: the first k - (n mod k) chunks hold floor(n/k) units
// and the remainder is absorbed by the later chunks. The sizes always sum
// to n and differ from each other by at most one.
func Split(n, k int) []int {
	if k <= 0 || n < 0 {
		return nil
	}
	base, rem := n/k, n%k
	sizes := make([]int, k)
	for i := range sizes {
		sizes[i] = base
		if i >= k-rem {
			sizes[i]++
		}
	}
	return sizes
}

// ChunksFor splits n scaling units into the smallest number of chunks that
// each individually fit the budget.
func (m Model) ChunksFor(n int, budget int64) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}
	viable, err := m.Viable(budget)
	if err != nil {
		return nil, err
	}
	if viable >= n {
		return []int{n}, nil
	}
	k := (n + viable - 1) / viable
	return Split(n, k), nil
}
