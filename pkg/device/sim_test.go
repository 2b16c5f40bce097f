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
	"testing"
)

func TestSimScopeAccounting(t *testing.T) {
	sim := NewSim()

	scope, err := sim.Acquire()
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if got := sim.ActiveScopes(); got != 1 {
		t.Errorf("ActiveScopes() = %d after acquire, want 1", got)
	}

	scope.Release()
	scope.Release() // double release must be harmless
	if got := sim.ActiveScopes(); got != 0 {
		t.Errorf("ActiveScopes() = %d after release, want 0", got)
	}
}

func TestSimAllocationLifecycle(t *testing.T) {
	sim := NewSim()

	buf, err := sim.AllocDevice(64)
	if err != nil {
		t.Fatalf("AllocDevice(64) returned error: %v", err)
	}
	if buf.Size() != 64 {
		t.Errorf("Size() = %d, want 64", buf.Size())
	}
	if got := sim.AllocatedBytes(); got != 64 {
		t.Errorf("AllocatedBytes() = %d, want 64", got)
	}

	src := make([]byte, 64)
	for i := range src {
		src[i] = byte(i)
	}
	if err := buf.Write(src); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	dst := make([]byte, 64)
	if err := buf.Read(dst); err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if dst[63] != 63 {
		t.Errorf("Read back dst[63] = %d, want 63", dst[63])
	}

	buf.Free()
	buf.Free() // double free must be harmless
	if got := sim.AllocatedBytes(); got != 0 {
		t.Errorf("AllocatedBytes() = %d after free, want 0", got)
	}
}

func TestSimZeroSizeAllocation(t *testing.T) {
	sim := NewSim()
	buf, err := sim.AllocDevice(0)
	if err != nil {
		t.Fatalf("AllocDevice(0) returned error: %v", err)
	}
	if err := buf.Zero(); err != nil {
		t.Errorf("Zero() on empty buffer returned error: %v", err)
	}
}

func TestSimWriteSizeMismatch(t *testing.T) {
	sim := NewSim()
	buf, err := sim.AllocDevice(8)
	if err != nil {
		t.Fatalf("AllocDevice(8) returned error: %v", err)
	}
	err = buf.Write(make([]byte, 4))
	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Write error = %v, want SizeMismatchError", err)
	}
	if mismatch.Want != 8 || mismatch.Got != 4 {
		t.Errorf("mismatch = %+v, want Want=8 Got=4", mismatch)
	}
}

func TestSimFailAllocationsAfter(t *testing.T) {
	sim := NewSim()
	sim.FailAllocationsAfter(1)

	if _, err := sim.AllocDevice(8); err != nil {
		t.Fatalf("first AllocDevice returned error: %v", err)
	}
	if _, err := sim.AllocDevice(8); err == nil {
		t.Fatal("second AllocDevice succeeded, want failure")
	}
}
