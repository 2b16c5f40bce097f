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

// Package registry records every buffer and scalar property the pipeline
// stages share, and mediates creation of their host and device storage.
//
// Stages register arrays by name against a symbolic shape; the registry
// resolves the shape against the live dimension table, allocates the
// requested storage kinds zero-initialised, and hands back a typed handle.
// Registering an existing name with an identical resolved shape and type is
// idempotent and may only grow the set of storage kinds; any mismatch is a
// conflict unless the caller explicitly asks to replace the record. Because
// the registry is the only mutator of the name-to-storage mapping, stages
// can share intermediate buffers by name without duplicating them.
//
// The registry's byte accounting (BytesRequired and friends) is the cost
// model the budget planner reasons over.
package registry

import (
	"strings"

	"github.com/go-logr/logr"

	"github.com/rime-sim/rime-solver-runtime/pkg/device"
	"github.com/rime-sim/rime-solver-runtime/pkg/dims"
	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
	"github.com/rime-sim/rime-solver-runtime/pkg/shape"
)

// ArrayRecord is the registry's stored metadata for one array.
type ArrayRecord struct {
	Name          string
	SymbolicShape shape.Shape
	ResolvedShape []int
	Dtype         dtype.Type
	Registrant    string
	HasHost       bool
	HasDevice     bool
}

// Bytes is the storage cost of the record: product of the resolved shape
// times the element size.
func (r *ArrayRecord) Bytes() int64 {
	return int64(shape.Product(r.ResolvedShape)) * int64(r.Dtype.Size())
}

// Options configure a registry instance.
type Options struct {
	// KeepHostCopies forces host storage for every registered array, the
	// process-wide "keep host copies" behaviour.
	KeepHostCopies bool

	// PinnedHost requests non-pageable host allocations by default.
	PinnedHost bool

	// Logger receives registration events. Defaults to a discarding logger.
	Logger logr.Logger
}

// Registry owns the array and property records of one solver context.
// It is not safe for concurrent mutation; registration happens before the
// pipeline initialises.
type Registry struct {
	table  *dims.Table
	alloc  device.Allocator
	opts   Options
	log    logr.Logger
	arrays map[string]*ArrayHandle
	order  []string
	props  map[string]*PropertyHandle
	porder []string
}

// New builds an empty registry over the dimension table and allocator.
func New(table *dims.Table, alloc device.Allocator, opts Options) *Registry {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Registry{
		table:  table,
		alloc:  alloc,
		opts:   opts,
		log:    log,
		arrays: make(map[string]*ArrayHandle),
		props:  make(map[string]*PropertyHandle),
	}
}

// Dimensions returns a read-only snapshot of the dimension table.
func (r *Registry) Dimensions() map[string]int {
	return r.table.Snapshot()
}

// Bool is a convenience for the optional booleans in ArrayOptions.
func Bool(v bool) *bool { return &v }

// TransferFunc copies a host array into the registered buffer. The default
// transfer validates shape and type against the record first.
type TransferFunc func(h *ArrayHandle, src []byte, srcShape []int, srcType dtype.Type) error

// ArrayOptions control what storage and accessors RegisterArray creates.
type ArrayOptions struct {
	// HostStorage requests a host buffer. Defaults to false unless the
	// registry was created with KeepHostCopies.
	HostStorage bool

	// DeviceStorage requests a device buffer. Defaults to true when nil.
	DeviceStorage *bool

	// Pinned requests a non-pageable host allocation.
	Pinned bool

	// RecordShape exposes the resolved shape under the derived member name
	// "<name>_shape", resolvable through Registry.Member.
	RecordShape bool

	// RecordDtype exposes the element type under the derived member name
	// "<name>_dtype", resolvable through Registry.Member.
	RecordDtype bool

	// Transfer overrides the generated transfer function.
	Transfer TransferFunc

	// Replace bypasses the conflict check and overwrites the record,
	// releasing the previous storage.
	Replace bool
}

// RegisterArray records an array and allocates its storage.
//
// If the name already exists the new resolved shape and type are compared
// against the record: a mismatch fails with ArrayConflictError unless
// Replace is set, and a match is a no-op that may only add storage kinds
// that did not exist before.
func (r *Registry) RegisterArray(name string, s shape.Shape, t dtype.Type, registrant string, opts ArrayOptions) (*ArrayHandle, error) {
	if t.Size() == 0 {
		return nil, &dtype.UnsupportedTypeError{Name: t.String()}
	}

	resolved, err := shape.Resolve(s, r.table, nil)
	if err != nil {
		return nil, err
	}

	wantHost := opts.HostStorage || r.opts.KeepHostCopies
	wantDevice := true
	if opts.DeviceStorage != nil {
		wantDevice = *opts.DeviceStorage
	}

	old := r.arrays[name]
	if old != nil && opts.Replace {
		old.release()
		delete(r.arrays, name)
		r.removeOrder(name)
		old = nil
	}

	if old != nil {
		if !equalShape(old.record.ResolvedShape, resolved) || old.record.Dtype != t {
			return nil, &ArrayConflictError{
				Name:                name,
				ExistingRegistrant:  old.record.Registrant,
				RequestedRegistrant: registrant,
				ExistingShape:       old.record.ResolvedShape,
				RequestedShape:      resolved,
				ExistingType:        old.record.Dtype,
				RequestedType:       t,
			}
		}
		// Idempotent re-registration: only grow the storage kinds.
		if wantHost && !old.record.HasHost {
			if err := old.createHost(opts.Pinned || r.opts.PinnedHost); err != nil {
				return nil, err
			}
		}
		if wantDevice && !old.record.HasDevice {
			if err := old.createDevice(); err != nil {
				return nil, err
			}
		}
		r.log.V(1).Info("array re-registered", "name", name, "registrant", registrant,
			"host", old.record.HasHost, "device", old.record.HasDevice)
		return old, nil
	}

	h := &ArrayHandle{
		registry: r,
		record: &ArrayRecord{
			Name:          name,
			SymbolicShape: s,
			ResolvedShape: resolved,
			Dtype:         t,
			Registrant:    registrant,
		},
	}
	if wantHost {
		if err := h.createHost(opts.Pinned || r.opts.PinnedHost); err != nil {
			return nil, err
		}
	}
	if wantDevice {
		if err := h.createDevice(); err != nil {
			return nil, err
		}
	}

	h.transfer = opts.Transfer
	if h.transfer == nil {
		h.transfer = defaultTransfer
	}
	h.recordShape = opts.RecordShape
	h.recordDtype = opts.RecordDtype

	r.arrays[name] = h
	r.order = append(r.order, name)
	r.log.V(1).Info("array registered", "name", name, "registrant", registrant,
		"shape", resolved, "dtype", t.String(), "bytes", h.record.Bytes(),
		"host", h.record.HasHost, "device", h.record.HasDevice)
	return h, nil
}

// Lookup returns the handle registered under name.
func (r *Registry) Lookup(name string) (*ArrayHandle, bool) {
	h, ok := r.arrays[name]
	return h, ok
}

// Member resolves a derived member name: arrays registered with RecordShape
// answer "<name>_shape" with their resolved shape, and arrays registered
// with RecordDtype answer "<name>_dtype" with their element type. Names
// without the matching registration option do not resolve.
func (r *Registry) Member(name string) (any, bool) {
	if base, ok := strings.CutSuffix(name, "_shape"); ok {
		if h, found := r.arrays[base]; found && h.recordShape {
			return h.Shape(), true
		}
	}
	if base, ok := strings.CutSuffix(name, "_dtype"); ok {
		if h, found := r.arrays[base]; found && h.recordDtype {
			return h.Dtype(), true
		}
	}
	return nil, false
}

// Record returns the stored metadata for name.
func (r *Registry) Record(name string) (*ArrayRecord, error) {
	h, ok := r.arrays[name]
	if !ok {
		return nil, &UnknownArrayError{Name: name}
	}
	return h.record, nil
}

// Records returns all array records in registration order. The budget
// planner iterates these to build its cost model.
func (r *Registry) Records() []*ArrayRecord {
	out := make([]*ArrayRecord, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.arrays[name].record)
	}
	return out
}

// CheckArray fails when the candidate shape or type differs from the
// record. Every write to a registered buffer goes through this check; byte
// size compatibility is never a substitute for shape and type agreement.
func (r *Registry) CheckArray(name string, candidateShape []int, candidateType dtype.Type) error {
	h, ok := r.arrays[name]
	if !ok {
		return &UnknownArrayError{Name: name}
	}
	rec := h.record
	if !equalShape(rec.ResolvedShape, candidateShape) {
		return &ShapeMismatchError{Name: name, Want: rec.ResolvedShape, Got: candidateShape}
	}
	if rec.Dtype != candidateType {
		return &TypeMismatchError{Name: name, Want: rec.Dtype, Got: candidateType}
	}
	return nil
}

// BytesRequired sums the byte cost of every record.
func (r *Registry) BytesRequired() int64 {
	var total int64
	for _, name := range r.order {
		total += r.arrays[name].record.Bytes()
	}
	return total
}

// HostBytesRequired sums the byte cost of host-bearing records.
func (r *Registry) HostBytesRequired() int64 {
	var total int64
	for _, name := range r.order {
		if rec := r.arrays[name].record; rec.HasHost {
			total += rec.Bytes()
		}
	}
	return total
}

// DeviceBytesRequired sums the byte cost of device-bearing records.
func (r *Registry) DeviceBytesRequired() int64 {
	var total int64
	for _, name := range r.order {
		if rec := r.arrays[name].record; rec.HasDevice {
			total += rec.Bytes()
		}
	}
	return total
}

// Release frees all storage owned by the registry. The solver context calls
// this once, at shutdown.
func (r *Registry) Release() {
	for _, name := range r.order {
		r.arrays[name].release()
	}
}

func (r *Registry) removeOrder(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
