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

// Package dtype defines the element types that registered arrays and
// properties may carry.
//
// The solver is parameterised over a floating point precision; the matching
// complex type is derived from it (float32 pairs with complex64, float64
// with complex128). Everything else in the runtime treats a Type as an
// opaque tag with a byte size.
package dtype

import "fmt"

// Type tags the element type of a registered array or property.
type Type int

const (
	// Invalid is the zero value and never a legal element type.
	Invalid Type = iota
	Float32
	Float64
	Complex64
	Complex128
	Int32
	Int64
	Uint8
)

// UnsupportedTypeError reports an element type the runtime cannot represent.
type UnsupportedTypeError struct {
	Name string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported element type %q: must be one of float32, float64, complex64, complex128, int32, int64, uint8", e.Name)
}

// Size returns the size of one element in bytes.
func (t Type) Size() int {
	switch t {
	case Float32, Int32:
		return 4
	case Float64, Complex64, Int64:
		return 8
	case Complex128:
		return 16
	case Uint8:
		return 1
	default:
		return 0
	}
}

func (t Type) String() string {
	switch t {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	default:
		return "invalid"
	}
}

// Parse resolves a type name to its tag.
func Parse(name string) (Type, error) {
	switch name {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "complex64":
		return Complex64, nil
	case "complex128":
		return Complex128, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "uint8":
		return Uint8, nil
	default:
		return Invalid, &UnsupportedTypeError{Name: name}
	}
}

// ComplexFor returns the complex type matching a floating point precision.
// Only Float32 and Float64 have a complex counterpart; any other type is an
// error because the solver's visibility arrays must hold complex values at
// the precision the solver was configured with.
func ComplexFor(ft Type) (Type, error) {
	switch ft {
	case Float32:
		return Complex64, nil
	case Float64:
		return Complex128, nil
	default:
		return Invalid, &UnsupportedTypeError{Name: ft.String()}
	}
}
