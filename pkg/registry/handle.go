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

package registry

import (
	"github.com/rime-sim/rime-solver-runtime/pkg/device"
	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
)

// ArrayHandle is the strongly-typed accessor returned by RegisterArray.
// Stages hold handles to read and write shared buffers; the registry
// remains the only owner of the underlying storage.
type ArrayHandle struct {
	registry    *Registry
	record      *ArrayRecord
	host        []byte
	deviceBuf   device.Buffer
	transfer    TransferFunc
	recordShape bool
	recordDtype bool
}

// Name returns the logical array name.
func (h *ArrayHandle) Name() string { return h.record.Name }

// Shape returns the resolved shape the array was allocated with.
func (h *ArrayHandle) Shape() []int {
	out := make([]int, len(h.record.ResolvedShape))
	copy(out, h.record.ResolvedShape)
	return out
}

// Dtype returns the element type.
func (h *ArrayHandle) Dtype() dtype.Type { return h.record.Dtype }

// Bytes returns the storage cost in bytes.
func (h *ArrayHandle) Bytes() int64 { return h.record.Bytes() }

// Host returns the host buffer, or nil when no host storage was requested.
func (h *ArrayHandle) Host() []byte { return h.host }

// Device returns the device buffer, or nil when no device storage was
// requested.
func (h *ArrayHandle) Device() device.Buffer { return h.deviceBuf }

// HasShapeMember reports whether Registry.Member resolves "<name>_shape"
// for this array.
func (h *ArrayHandle) HasShapeMember() bool { return h.recordShape }

// HasDtypeMember reports whether Registry.Member resolves "<name>_dtype"
// for this array.
func (h *ArrayHandle) HasDtypeMember() bool { return h.recordDtype }

// Transfer copies src into the array's storage after validating that the
// source shape and type match the record exactly.
func (h *ArrayHandle) Transfer(src []byte, srcShape []int, srcType dtype.Type) error {
	return h.transfer(h, src, srcShape, srcType)
}

// defaultTransfer is generated for arrays registered without a custom
// transfer function.
func defaultTransfer(h *ArrayHandle, src []byte, srcShape []int, srcType dtype.Type) error {
	if err := h.registry.CheckArray(h.record.Name, srcShape, srcType); err != nil {
		return err
	}
	if want := int(h.record.Bytes()); len(src) != want {
		return &device.SizeMismatchError{Op: "transfer", Want: want, Got: len(src)}
	}
	if h.record.HasHost {
		copy(h.host, src)
	}
	if h.record.HasDevice && h.deviceBuf.Size() > 0 {
		if err := h.deviceBuf.Write(src); err != nil {
			return err
		}
	}
	return nil
}

// createHost allocates zeroed host storage for the record.
func (h *ArrayHandle) createHost(pinned bool) error {
	buf, err := h.registry.alloc.AllocHost(int(h.record.Bytes()), pinned)
	if err != nil {
		return err
	}
	h.host = buf
	h.record.HasHost = true
	return nil
}

// createDevice allocates device storage for the record. Zero-size
// allocations must succeed; the explicit zero-fill only happens for
// non-empty buffers.
func (h *ArrayHandle) createDevice() error {
	buf, err := h.registry.alloc.AllocDevice(int(h.record.Bytes()))
	if err != nil {
		return err
	}
	if buf.Size() > 0 {
		if err := buf.Zero(); err != nil {
			buf.Free()
			return err
		}
	}
	h.deviceBuf = buf
	h.record.HasDevice = true
	return nil
}

// release frees whatever storage the handle owns.
func (h *ArrayHandle) release() {
	if h.deviceBuf != nil {
		h.deviceBuf.Free()
		h.deviceBuf = nil
		h.record.HasDevice = false
	}
	h.host = nil
	h.record.HasHost = false
}
