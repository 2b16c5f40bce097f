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

// Package device defines the narrow seam between the solver runtime and an
// accelerator driver.
//
// The runtime never talks to a driver API directly. It acquires a scoped
// context handle around allocation and execution, and allocates device and
// host storage through an Allocator. Real backends implement these
// interfaces over their toolchain of choice; the Sim type in this package
// is an in-process implementation used by tests and the planning CLI.
package device

import "fmt"

// Scope is an acquired device context. Allocation and kernel launches are
// only valid between Acquire and Release.
type Scope interface {
	Release()
}

// Context supplies scoped access to one accelerator.
type Context interface {
	Acquire() (Scope, error)
}

// Buffer is a device-resident allocation.
type Buffer interface {
	// Size is the allocation size in bytes.
	Size() int

	// Zero fills the buffer with zeroes. Zero on a size-0 buffer is a no-op.
	Zero() error

	// Write copies len(src) bytes from host memory into the buffer. The
	// source must match the buffer size exactly.
	Write(src []byte) error

	// Read copies the buffer back into dst, which must match the buffer
	// size exactly.
	Read(dst []byte) error

	// Free releases the allocation. The buffer is unusable afterwards.
	Free()
}

// Allocator creates host and device storage.
type Allocator interface {
	// AllocDevice allocates n bytes of device memory. n may be zero:
	// zero-size problem dimensions are legal and must not fail allocation.
	AllocDevice(n int) (Buffer, error)

	// AllocHost allocates n bytes of host memory, optionally requesting a
	// non-pageable (pinned) allocation for faster transfers.
	AllocHost(n int, pinned bool) ([]byte, error)
}

// SizeMismatchError reports a transfer whose byte count disagrees with the
// buffer's allocation.
type SizeMismatchError struct {
	Op   string
	Want int
	Got  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("device %s: buffer holds %d bytes, got %d", e.Op, e.Want, e.Got)
}
