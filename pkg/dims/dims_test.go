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

package dims

import (
	"errors"
	"testing"
)

func TestBaselineCount(t *testing.T) {
	tests := []struct {
		name string
		na   int
		auto bool
		want int
	}{
		{name: "no antennas", na: 0, auto: false, want: 0},
		{name: "one antenna no autocorrelation", na: 1, auto: false, want: 0},
		{name: "one antenna with autocorrelation", na: 1, auto: true, want: 1},
		{name: "three antennas no autocorrelation", na: 3, auto: false, want: 3},
		{name: "three antennas with autocorrelation", na: 3, auto: true, want: 6},
		{name: "seven antennas no autocorrelation", na: 7, auto: false, want: 21},
		{name: "seven antennas with autocorrelation", na: 7, auto: true, want: 28},
		{name: "meerkat sixty four antennas", na: 64, auto: false, want: 2016},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BaselineCount(tt.na, tt.auto); got != tt.want {
				t.Errorf("BaselineCount(%d, %v) = %d, want %d", tt.na, tt.auto, got, tt.want)
			}
		})
	}
}

func TestNewDerivedDimensions(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New(DefaultConfig()) returned error: %v", err)
	}

	want := map[string]int{
		Antennas:     3,
		Baselines:    3,
		Channels:     4,
		Timesteps:    10,
		Sources:      3,
		Visibilities: 3 * 4 * 10,
	}
	for name, value := range want {
		got, ok := tbl.Get(name)
		if !ok {
			t.Fatalf("dimension %q missing from table", name)
		}
		if got != value {
			t.Errorf("%s = %d, want %d", name, got, value)
		}
	}
}

func TestNewRejectsNegativeValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels = -1
	_, err := New(cfg)
	var negative *NegativeValueError
	if !errors.As(err, &negative) {
		t.Fatalf("New() error = %v, want NegativeValueError", err)
	}
	if negative.Name != Channels {
		t.Errorf("error names %q, want %q", negative.Name, Channels)
	}
}

func TestNewRejectsZeroSources(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PointSources = 0
	cfg.GaussianSources = 0
	cfg.SersicSources = 0
	_, err := New(cfg)
	var noSources *NoSourcesError
	if !errors.As(err, &noSources) {
		t.Fatalf("New() error = %v, want NoSourcesError", err)
	}
}

func TestSetRecomputesDerived(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := tbl.Set(Antennas, 7); err != nil {
		t.Fatalf("Set(na, 7) returned error: %v", err)
	}
	if nbl, _ := tbl.Get(Baselines); nbl != 21 {
		t.Errorf("nbl = %d after setting na=7, want 21", nbl)
	}
	if nvis, _ := tbl.Get(Visibilities); nvis != 21*4*10 {
		t.Errorf("nvis = %d after setting na=7, want %d", nvis, 21*4*10)
	}

	if err := tbl.Set(Timesteps, 5); err != nil {
		t.Fatalf("Set(ntime, 5) returned error: %v", err)
	}
	if nvis, _ := tbl.Get(Visibilities); nvis != 21*4*5 {
		t.Errorf("nvis = %d after setting ntime=5, want %d", nvis, 21*4*5)
	}
}

func TestSetRejectsDerivedAndUnknown(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	var derivedErr *DerivedDimensionError
	if err := tbl.Set(Baselines, 10); !errors.As(err, &derivedErr) {
		t.Errorf("Set(nbl) error = %v, want DerivedDimensionError", err)
	}

	var unknown *UnknownDimensionError
	if err := tbl.Set("nbeams", 4); !errors.As(err, &unknown) {
		t.Errorf("Set(nbeams) error = %v, want UnknownDimensionError", err)
	}

	var negative *NegativeValueError
	if err := tbl.Set(Antennas, -2); !errors.As(err, &negative) {
		t.Errorf("Set(na, -2) error = %v, want NegativeValueError", err)
	}
}

func TestDefineAndSnapshot(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := tbl.Define("nbeams", 4); err != nil {
		t.Fatalf("Define(nbeams, 4) returned error: %v", err)
	}

	snap := tbl.Snapshot()
	if snap["nbeams"] != 4 {
		t.Errorf("snapshot nbeams = %d, want 4", snap["nbeams"])
	}

	// Mutating the snapshot must not touch the table.
	snap[Antennas] = 99
	if na, _ := tbl.Get(Antennas); na != 3 {
		t.Errorf("table na = %d after snapshot mutation, want 3", na)
	}
}
