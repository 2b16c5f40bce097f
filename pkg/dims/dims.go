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

// Package dims holds the named problem dimensions shared by every component
// of the solver runtime.
//
// A Table maps dimension names to non-negative integer values. The core
// dimensions describe one radio interferometry problem: antennas, baselines,
// channels, timesteps and the three source categories. Derived dimensions
// (baselines, total sources, visibilities) are recomputed whenever one of
// their inputs changes, so a Table can never hold an inconsistent view of
// the problem size.
package dims

import "fmt"

// Core dimension names. Shape expressions and the budget planner refer to
// dimensions by these names.
const (
	Antennas        = "na"
	Baselines       = "nbl"
	Channels        = "nchan"
	Timesteps       = "ntime"
	PointSources    = "npsrc"
	GaussianSources = "ngsrc"
	SersicSources   = "nssrc"
	Sources         = "nsrc"
	Visibilities    = "nvis"
)

// Default problem dimensions used when a config leaves them unset.
const (
	DefaultAntennas        = 3
	DefaultChannels        = 4
	DefaultTimesteps       = 10
	DefaultPointSources    = 2
	DefaultGaussianSources = 1
	DefaultSersicSources   = 0
)

// NegativeValueError reports an attempt to give a dimension a negative value.
type NegativeValueError struct {
	Name  string
	Value int
}

func (e *NegativeValueError) Error() string {
	return fmt.Sprintf("dimension %q cannot be negative, got %d", e.Name, e.Value)
}

// UnknownDimensionError reports a reference to a dimension absent from the table.
type UnknownDimensionError struct {
	Name string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("unknown dimension %q", e.Name)
}

// DerivedDimensionError reports a direct write to a derived dimension.
// Derived dimensions only change through their inputs.
type DerivedDimensionError struct {
	Name string
}

func (e *DerivedDimensionError) Error() string {
	return fmt.Sprintf("dimension %q is derived and cannot be set directly", e.Name)
}

// NoSourcesError reports a configuration whose source counts sum to zero.
type NoSourcesError struct {
	Point, Gaussian, Sersic int
}

func (e *NoSourcesError) Error() string {
	return fmt.Sprintf("the sum of point (%d), gaussian (%d) and sersic (%d) sources must be greater than zero",
		e.Point, e.Gaussian, e.Sersic)
}

// Config supplies the independent problem dimensions.
type Config struct {
	Antennas        int
	Channels        int
	Timesteps       int
	PointSources    int
	GaussianSources int
	SersicSources   int

	// AutoCorrelations selects the baseline count formula: n*(n+1)/2 when
	// set, n*(n-1)/2 otherwise.
	AutoCorrelations bool
}

// DefaultConfig returns the default problem dimensions.
func DefaultConfig() Config {
	return Config{
		Antennas:        DefaultAntennas,
		Channels:        DefaultChannels,
		Timesteps:       DefaultTimesteps,
		PointSources:    DefaultPointSources,
		GaussianSources: DefaultGaussianSources,
		SersicSources:   DefaultSersicSources,
	}
}

// BaselineCount returns the number of baselines formed by na antennas,
// n*(n+1)/2 with auto-correlations and n*(n-1)/2 without.
func BaselineCount(na int, autoCorrelations bool) int {
	if autoCorrelations {
		return na * (na + 1) / 2
	}
	return na * (na - 1) / 2
}

// Table maps dimension names to their current values. It is not safe for
// concurrent mutation; all registration and sizing happens before the
// pipeline executes.
type Table struct {
	values           map[string]int
	autoCorrelations bool
}

// New builds a table from the config, validating every value and computing
// the derived dimensions. It fails fast so no downstream component sees a
// malformed problem.
func New(cfg Config) (*Table, error) {
	for _, d := range []struct {
		name  string
		value int
	}{
		{Antennas, cfg.Antennas},
		{Channels, cfg.Channels},
		{Timesteps, cfg.Timesteps},
		{PointSources, cfg.PointSources},
		{GaussianSources, cfg.GaussianSources},
		{SersicSources, cfg.SersicSources},
	} {
		if d.value < 0 {
			return nil, &NegativeValueError{Name: d.name, Value: d.value}
		}
	}

	nsrc := cfg.PointSources + cfg.GaussianSources + cfg.SersicSources
	if nsrc == 0 {
		return nil, &NoSourcesError{
			Point:    cfg.PointSources,
			Gaussian: cfg.GaussianSources,
			Sersic:   cfg.SersicSources,
		}
	}

	t := &Table{
		values:           make(map[string]int),
		autoCorrelations: cfg.AutoCorrelations,
	}
	t.values[Antennas] = cfg.Antennas
	t.values[Channels] = cfg.Channels
	t.values[Timesteps] = cfg.Timesteps
	t.values[PointSources] = cfg.PointSources
	t.values[GaussianSources] = cfg.GaussianSources
	t.values[SersicSources] = cfg.SersicSources
	t.recompute()
	return t, nil
}

// recompute refreshes the derived dimensions from their inputs.
func (t *Table) recompute() {
	nbl := BaselineCount(t.values[Antennas], t.autoCorrelations)
	t.values[Baselines] = nbl
	t.values[Sources] = t.values[PointSources] + t.values[GaussianSources] + t.values[SersicSources]
	t.values[Visibilities] = nbl * t.values[Channels] * t.values[Timesteps]
}

var derived = map[string]bool{
	Baselines:    true,
	Sources:      true,
	Visibilities: true,
}

// Set assigns a new value to a dimension and recomputes any dimensions
// derived from it. Derived dimensions cannot be set directly.
func (t *Table) Set(name string, value int) error {
	if derived[name] {
		return &DerivedDimensionError{Name: name}
	}
	if value < 0 {
		return &NegativeValueError{Name: name, Value: value}
	}
	if _, ok := t.values[name]; !ok {
		return &UnknownDimensionError{Name: name}
	}
	t.values[name] = value
	t.recompute()
	return nil
}

// Define adds a new named dimension to the table. Stages use this to expose
// their own sizing quantities to shape expressions.
func (t *Table) Define(name string, value int) error {
	if value < 0 {
		return &NegativeValueError{Name: name, Value: value}
	}
	t.values[name] = value
	return nil
}

// Get reports the value of a dimension and whether it exists.
func (t *Table) Get(name string) (int, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Value returns the value of a dimension, failing if it is unknown.
func (t *Table) Value(name string) (int, error) {
	v, ok := t.values[name]
	if !ok {
		return 0, &UnknownDimensionError{Name: name}
	}
	return v, nil
}

// Snapshot returns a read-only copy of the dimension table. Stages size
// their kernel launches from this without being able to disturb the solver.
func (t *Table) Snapshot() map[string]int {
	out := make(map[string]int, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// AutoCorrelations reports which baseline formula the table uses.
func (t *Table) AutoCorrelations() bool {
	return t.autoCorrelations
}

// Window names a contiguous span of one dimension. Data feeders use windows
// to supply array contents for a chunk of the full problem.
type Window struct {
	Dimension string
	Offset    int
	Extent    int
}
