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

package device

import (
	"errors"
	"sync"
)

// Sim is an in-process device. It backs device buffers with host memory and
// tracks outstanding allocations, which lets tests assert on byte
// accounting and leak-free shutdown without accelerator hardware.
type Sim struct {
	mu        sync.Mutex
	acquired  int
	allocated int64
	freed     int64
	failAfter int // when > 0, AllocDevice fails once this many allocations have happened
	allocs    int
}

// Compile-time interface checks.
var (
	_ Context   = (*Sim)(nil)
	_ Allocator = (*Sim)(nil)
)

// NewSim returns a simulated device.
func NewSim() *Sim {
	return &Sim{}
}

// FailAllocationsAfter makes AllocDevice fail after n successful
// allocations. Tests use this to exercise allocation error paths.
func (s *Sim) FailAllocationsAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter = n
}

// Acquire takes the device scope.
func (s *Sim) Acquire() (Scope, error) {
	s.mu.Lock()
	s.acquired++
	s.mu.Unlock()
	return &simScope{sim: s}, nil
}

// ActiveScopes reports how many scopes are currently held.
func (s *Sim) ActiveScopes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

// AllocatedBytes reports device bytes currently outstanding.
func (s *Sim) AllocatedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocated - s.freed
}

// AllocDevice allocates a simulated device buffer of n bytes.
func (s *Sim) AllocDevice(n int) (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && s.allocs >= s.failAfter {
		return nil, errors.New("sim device: out of memory")
	}
	s.allocs++
	s.allocated += int64(n)
	return &simBuffer{sim: s, data: make([]byte, n)}, nil
}

// AllocHost allocates host memory. Pinning is a no-op for the simulated
// device; it exists so callers exercise the same code path as a real
// backend.
func (s *Sim) AllocHost(n int, pinned bool) ([]byte, error) {
	return make([]byte, n), nil
}

type simScope struct {
	sim  *Sim
	once sync.Once
}

func (s *simScope) Release() {
	s.once.Do(func() {
		s.sim.mu.Lock()
		s.sim.acquired--
		s.sim.mu.Unlock()
	})
}

type simBuffer struct {
	sim   *Sim
	data  []byte
	freed bool
}

func (b *simBuffer) Size() int { return len(b.data) }

func (b *simBuffer) Zero() error {
	if len(b.data) == 0 {
		return nil
	}
	for i := range b.data {
		b.data[i] = 0
	}
	return nil
}

func (b *simBuffer) Write(src []byte) error {
	if len(src) != len(b.data) {
		return &SizeMismatchError{Op: "write", Want: len(b.data), Got: len(src)}
	}
	copy(b.data, src)
	return nil
}

func (b *simBuffer) Read(dst []byte) error {
	if len(dst) != len(b.data) {
		return &SizeMismatchError{Op: "read", Want: len(b.data), Got: len(dst)}
	}
	copy(dst, b.data)
	return nil
}

func (b *simBuffer) Free() {
	if b.freed {
		return
	}
	b.freed = true
	b.sim.mu.Lock()
	b.sim.freed += int64(len(b.data))
	b.sim.mu.Unlock()
	b.data = nil
}
