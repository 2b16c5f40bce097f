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

// Package config loads and validates the runtime configuration: problem
// dimensions, arithmetic precision, storage policy and the memory budget.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rime-sim/rime-solver-runtime/pkg/dims"
	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
	"github.com/rime-sim/rime-solver-runtime/pkg/solver"
)

// DimensionsConfig holds the independent problem dimensions.
type DimensionsConfig struct {
	// Antennas is the antenna count; baselines are derived from it.
	Antennas int `yaml:"antennas" json:"antennas"`

	// Channels is the frequency channel count.
	Channels int `yaml:"channels" json:"channels"`

	// Timesteps is the observation timestep count.
	Timesteps int `yaml:"timesteps" json:"timesteps"`

	// PointSources, GaussianSources and SersicSources are the per-morphology
	// source counts. At least one must be positive.
	PointSources    int `yaml:"pointSources" json:"pointSources"`
	GaussianSources int `yaml:"gaussianSources" json:"gaussianSources"`
	SersicSources   int `yaml:"sersicSources" json:"sersicSources"`
}

// RuntimeConfig is the top-level configuration document.
type RuntimeConfig struct {
	Dimensions DimensionsConfig `yaml:"dimensions" json:"dimensions"`

	// Precision is "float" or "double".
	Precision string `yaml:"precision,omitempty" json:"precision,omitempty"`

	// AutoCorrelations includes each antenna's correlation with itself in
	// the baseline count.
	AutoCorrelations bool `yaml:"autoCorrelations,omitempty" json:"autoCorrelations,omitempty"`

	// KeepHostCopies retains a host copy of every array.
	KeepHostCopies bool `yaml:"keepHostCopies,omitempty" json:"keepHostCopies,omitempty"`

	// PinnedHost requests non-pageable host allocations.
	PinnedHost bool `yaml:"pinnedHost,omitempty" json:"pinnedHost,omitempty"`

	// MemoryBudgetBytes bounds device memory. Zero disables chunking.
	MemoryBudgetBytes int64 `yaml:"memoryBudgetBytes,omitempty" json:"memoryBudgetBytes,omitempty"`

	// ScalingDimension is shrunk to fit the budget. Defaults to "ntime".
	ScalingDimension string `yaml:"scalingDimension,omitempty" json:"scalingDimension,omitempty"`
}

// Default returns the configuration used when no file is supplied.
func Default() RuntimeConfig {
	d := dims.DefaultConfig()
	return RuntimeConfig{
		Dimensions: DimensionsConfig{
			Antennas:        d.Antennas,
			Channels:        d.Channels,
			Timesteps:       d.Timesteps,
			PointSources:    d.PointSources,
			GaussianSources: d.GaussianSources,
			SersicSources:   d.SersicSources,
		},
		Precision:        "double",
		ScalingDimension: dims.Timesteps,
	}
}

// String renders the effective configuration as yaml.
func (c RuntimeConfig) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unmarshalable config: %v>", err)
	}
	return string(out)
}

// Validate checks for invalid configuration values.
func (c *RuntimeConfig) Validate() error {
	for _, d := range []struct {
		name  string
		value int
	}{
		{"antennas", c.Dimensions.Antennas},
		{"channels", c.Dimensions.Channels},
		{"timesteps", c.Dimensions.Timesteps},
		{"pointSources", c.Dimensions.PointSources},
		{"gaussianSources", c.Dimensions.GaussianSources},
		{"sersicSources", c.Dimensions.SersicSources},
	} {
		if d.value < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", d.name, d.value)
		}
	}
	total := c.Dimensions.PointSources + c.Dimensions.GaussianSources + c.Dimensions.SersicSources
	if total <= 0 {
		return fmt.Errorf("at least one source is required, got %d point + %d gaussian + %d sersic",
			c.Dimensions.PointSources, c.Dimensions.GaussianSources, c.Dimensions.SersicSources)
	}
	if _, err := c.precisionType(); err != nil {
		return err
	}
	if c.MemoryBudgetBytes < 0 {
		return fmt.Errorf("memoryBudgetBytes must be >= 0, got %d", c.MemoryBudgetBytes)
	}
	return nil
}

func (c *RuntimeConfig) precisionType() (dtype.Type, error) {
	switch strings.ToLower(c.Precision) {
	case "", "double", "float64":
		return dtype.Float64, nil
	case "float", "float32":
		return dtype.Float32, nil
	default:
		return dtype.Invalid, fmt.Errorf("precision must be \"float\" or \"double\", got %q", c.Precision)
	}
}

// SolverConfig converts the validated document into a solver configuration.
func (c *RuntimeConfig) SolverConfig() (solver.Config, error) {
	precision, err := c.precisionType()
	if err != nil {
		return solver.Config{}, err
	}
	return solver.Config{
		Dims: dims.Config{
			Antennas:         c.Dimensions.Antennas,
			Channels:         c.Dimensions.Channels,
			Timesteps:        c.Dimensions.Timesteps,
			PointSources:     c.Dimensions.PointSources,
			GaussianSources:  c.Dimensions.GaussianSources,
			SersicSources:    c.Dimensions.SersicSources,
			AutoCorrelations: c.AutoCorrelations,
		},
		Precision:        precision,
		KeepHostCopies:   c.KeepHostCopies,
		PinnedHost:       c.PinnedHost,
		MemoryBudget:     c.MemoryBudgetBytes,
		ScalingDimension: c.ScalingDimension,
	}, nil
}

// Load reads the configuration from a yaml file, layered over the defaults,
// with environment overrides under the RIME prefix (RIME_PRECISION,
// RIME_DIMENSIONS_ANTENNAS and so on). An empty path skips the file and
// loads defaults plus environment only.
func Load(path string) (RuntimeConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return RuntimeConfig{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg RuntimeConfig) {
	v.SetDefault("dimensions.antennas", cfg.Dimensions.Antennas)
	v.SetDefault("dimensions.channels", cfg.Dimensions.Channels)
	v.SetDefault("dimensions.timesteps", cfg.Dimensions.Timesteps)
	v.SetDefault("dimensions.pointSources", cfg.Dimensions.PointSources)
	v.SetDefault("dimensions.gaussianSources", cfg.Dimensions.GaussianSources)
	v.SetDefault("dimensions.sersicSources", cfg.Dimensions.SersicSources)
	v.SetDefault("precision", cfg.Precision)
	v.SetDefault("autoCorrelations", cfg.AutoCorrelations)
	v.SetDefault("keepHostCopies", cfg.KeepHostCopies)
	v.SetDefault("pinnedHost", cfg.PinnedHost)
	v.SetDefault("memoryBudgetBytes", cfg.MemoryBudgetBytes)
	v.SetDefault("scalingDimension", cfg.ScalingDimension)
}
