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

package dtype

import (
	"errors"
	"testing"
)

func TestSize(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want int
	}{
		{name: "float32 is 4 bytes", typ: Float32, want: 4},
		{name: "float64 is 8 bytes", typ: Float64, want: 8},
		{name: "complex64 is 8 bytes", typ: Complex64, want: 8},
		{name: "complex128 is 16 bytes", typ: Complex128, want: 16},
		{name: "int32 is 4 bytes", typ: Int32, want: 4},
		{name: "int64 is 8 bytes", typ: Int64, want: 8},
		{name: "uint8 is 1 byte", typ: Uint8, want: 1},
		{name: "invalid is 0 bytes", typ: Invalid, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, typ := range []Type{Float32, Float64, Complex64, Complex128, Int32, Int64, Uint8} {
		got, err := Parse(typ.String())
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", typ.String(), err)
		}
		if got != typ {
			t.Errorf("Parse(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse("float16")
	var unsupported *UnsupportedTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Parse(float16) error = %v, want UnsupportedTypeError", err)
	}
	if unsupported.Name != "float16" {
		t.Errorf("error names %q, want float16", unsupported.Name)
	}
}

func TestComplexFor(t *testing.T) {
	tests := []struct {
		name    string
		ft      Type
		want    Type
		wantErr bool
	}{
		{name: "float32 pairs with complex64", ft: Float32, want: Complex64},
		{name: "float64 pairs with complex128", ft: Float64, want: Complex128},
		{name: "int32 has no complex pairing", ft: Int32, wantErr: true},
		{name: "complex64 has no complex pairing", ft: Complex64, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComplexFor(tt.ft)
			if tt.wantErr {
				var unsupported *UnsupportedTypeError
				if !errors.As(err, &unsupported) {
					t.Fatalf("ComplexFor(%v) error = %v, want UnsupportedTypeError", tt.ft, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComplexFor(%v) returned error: %v", tt.ft, err)
			}
			if got != tt.want {
				t.Errorf("ComplexFor(%v) = %v, want %v", tt.ft, got, tt.want)
			}
		})
	}
}
