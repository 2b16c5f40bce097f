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

// Package solver owns the shared state of one simulation run.
//
// A Solver aggregates the four pieces every run needs:
//
//   - Table: the named problem dimensions and their derived identities
//   - Registry: array and property records plus their host/device storage
//   - Pipeline: the ordered stages and their lifecycle state machine
//   - Context: the accelerator handle whose scope brackets all device work
//
// Lifecycle:
//
// Acquisition is scoped. Run initialises the pipeline on entry and shuts it
// down on every exit path, so a failing stage cannot leak device memory or
// an acquired context:
//
//	s, err := solver.New(ctx, cfg, dev, dev, rime.Stages()...)
//	if err != nil {
//	    return err
//	}
//	err = s.Run(ctx, func(ctx context.Context, s *solver.Solver) error {
//	    return s.Execute(ctx)
//	})
//
// Chunking:
//
// When a memory budget is configured, PlanChunks splits the scaling
// dimension into sizes the budget admits and ChunkConfigs derives one
// configuration per chunk. SolveChunks then runs each chunk as an
// independent solver with its own registry and device handle, so chunks
// share no mutable state and may execute concurrently.
//
// The solver is designed to be:
//   - Deterministic: same configuration produces the same plan
//   - Leak-free: every initialise is paired with a shutdown
//   - Observable: byte requirements and stage timings are exported as metrics
package solver
