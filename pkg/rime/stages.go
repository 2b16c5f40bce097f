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

// Package rime defines the standard arrays and properties of the radio
// interferometer measurement equation in its BIRO formulation, packaged as
// pipeline stages. Kernel implementations layer their own stages on top of
// these inputs and outputs.
package rime

import (
	"context"

	"github.com/rime-sim/rime-solver-runtime/pkg/dims"
	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
	"github.com/rime-sim/rime-solver-runtime/pkg/pipeline"
	"github.com/rime-sim/rime-solver-runtime/pkg/registry"
	"github.com/rime-sim/rime-solver-runtime/pkg/shape"
	"github.com/rime-sim/rime-solver-runtime/pkg/solver"
)

// Standard array names.
const (
	UVW          = "uvw"
	LM           = "lm"
	Brightness   = "brightness"
	GaussShape   = "gauss_shape"
	SersicShape  = "sersic_shape"
	Frequency    = "frequency"
	PointErrors  = "point_errors"
	WeightVector = "weight_vector"
	Flag         = "flag"
	ObservedVis  = "observed_vis"
	ModelVis     = "model_vis"
)

// Standard property names.
const (
	SigmaSquared = "sigma_sqrd"
	ChiSquared   = "X2"
)

type arrayDef struct {
	name  string
	shape shape.Shape
	typ   func(s *solver.Solver) dtype.Type
}

func floatOf(s *solver.Solver) dtype.Type   { return s.FloatType() }
func complexOf(s *solver.Solver) dtype.Type { return s.ComplexType() }
func uint8Of(s *solver.Solver) dtype.Type   { return dtype.Uint8 }

var inputArrays = []arrayDef{
	{UVW, shape.MustOf(3, dims.Timesteps, dims.Baselines), floatOf},
	{LM, shape.MustOf(2, dims.Sources), floatOf},
	{Brightness, shape.MustOf(5, dims.Timesteps, dims.Sources), floatOf},
	{GaussShape, shape.MustOf(3, dims.GaussianSources), floatOf},
	{SersicShape, shape.MustOf(3, dims.SersicSources), floatOf},
	{Frequency, shape.MustOf(dims.Channels), floatOf},
	{PointErrors, shape.MustOf(2, dims.Timesteps, dims.Antennas), floatOf},
	{WeightVector, shape.MustOf(4, dims.Timesteps, dims.Baselines, dims.Channels), floatOf},
	{Flag, shape.MustOf(4, dims.Timesteps, dims.Baselines, dims.Channels), uint8Of},
}

var outputArrays = []arrayDef{
	{ObservedVis, shape.MustOf(4, dims.Timesteps, dims.Baselines, dims.Channels), complexOf},
	{ModelVis, shape.MustOf(4, dims.Timesteps, dims.Baselines, dims.Channels), complexOf},
}

// InputStage registers the measurement equation's input arrays and the
// noise/goodness-of-fit properties during initialisation.
type InputStage struct {
	s *solver.Solver
}

// NewInputStage returns an unbound input stage; the solver binds it at
// construction.
func NewInputStage() *InputStage { return &InputStage{} }

func (st *InputStage) Bind(s *solver.Solver) { st.s = s }

func (st *InputStage) Name() string { return "rime-inputs" }

func (st *InputStage) Initialise(ctx context.Context) error {
	for _, def := range inputArrays {
		_, err := st.s.Registry().RegisterArray(
			def.name, def.shape, def.typ(st.s), st.Name(), registry.ArrayOptions{})
		if err != nil {
			return err
		}
	}
	if _, err := st.s.Registry().RegisterProperty(
		SigmaSquared, st.s.FloatType(), 1.0, st.Name(), registry.PropertyOptions{}); err != nil {
		return err
	}
	if _, err := st.s.Registry().RegisterProperty(
		ChiSquared, st.s.FloatType(), 0.0, st.Name(),
		registry.PropertyOptions{Setter: registry.Bool(false)}); err != nil {
		return err
	}
	solver.Logger(ctx).V(1).Info("registered measurement equation inputs",
		"arrays", len(inputArrays))
	return nil
}

func (st *InputStage) PreExecute(ctx context.Context) error  { return nil }
func (st *InputStage) Execute(ctx context.Context) error     { return nil }
func (st *InputStage) PostExecute(ctx context.Context) error { return nil }
func (st *InputStage) Shutdown(ctx context.Context) error    { return nil }

// VisibilityStage registers the observed and model visibility arrays.
type VisibilityStage struct {
	s *solver.Solver
}

// NewVisibilityStage returns an unbound visibility stage.
func NewVisibilityStage() *VisibilityStage { return &VisibilityStage{} }

func (st *VisibilityStage) Bind(s *solver.Solver) { st.s = s }

func (st *VisibilityStage) Name() string { return "rime-visibilities" }

func (st *VisibilityStage) Initialise(ctx context.Context) error {
	for _, def := range outputArrays {
		_, err := st.s.Registry().RegisterArray(
			def.name, def.shape, def.typ(st.s), st.Name(), registry.ArrayOptions{})
		if err != nil {
			return err
		}
	}
	return nil
}

func (st *VisibilityStage) PreExecute(ctx context.Context) error  { return nil }
func (st *VisibilityStage) Execute(ctx context.Context) error     { return nil }
func (st *VisibilityStage) PostExecute(ctx context.Context) error { return nil }
func (st *VisibilityStage) Shutdown(ctx context.Context) error    { return nil }

var (
	_ pipeline.Stage = (*InputStage)(nil)
	_ pipeline.Stage = (*VisibilityStage)(nil)
	_ solver.Binder  = (*InputStage)(nil)
	_ solver.Binder  = (*VisibilityStage)(nil)
)

// Stages returns the standard input and visibility stages, in registration
// order.
func Stages() []pipeline.Stage {
	return []pipeline.Stage{NewInputStage(), NewVisibilityStage()}
}
