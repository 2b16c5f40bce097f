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
	"fmt"
	"math"

	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
)

// PropertyRecord is the registry's stored metadata for one scalar property.
type PropertyRecord struct {
	Name       string
	Dtype      dtype.Type
	Default    any
	Registrant string
}

// PropertyOptions control what RegisterProperty generates.
type PropertyOptions struct {
	// Setter controls whether the handle permits assignment. Defaults to
	// true when nil; a read-only property rejects Set.
	Setter *bool
}

// PropertyHandle is the typed accessor returned by RegisterProperty.
type PropertyHandle struct {
	record   *PropertyRecord
	value    any
	settable bool
}

// Name returns the property name.
func (p *PropertyHandle) Name() string { return p.record.Name }

// Dtype returns the property element type.
func (p *PropertyHandle) Dtype() dtype.Type { return p.record.Dtype }

// Default returns the registered default value.
func (p *PropertyHandle) Default() any { return p.record.Default }

// Value returns the current value.
func (p *PropertyHandle) Value() any { return p.value }

// Set assigns a new value after validating it against the property's
// element type.
func (p *PropertyHandle) Set(v any) error {
	if !p.settable {
		return fmt.Errorf("property %q is read-only", p.record.Name)
	}
	coerced, err := coerceScalar(p.record.Name, p.record.Dtype, v)
	if err != nil {
		return err
	}
	p.value = coerced
	return nil
}

// RegisterProperty records a scalar property with a type-checked default.
// Re-registering an identical property is idempotent; a differing type or
// default fails with PropertyConflictError.
func (r *Registry) RegisterProperty(name string, t dtype.Type, def any, registrant string, opts PropertyOptions) (*PropertyHandle, error) {
	if t.Size() == 0 {
		return nil, &dtype.UnsupportedTypeError{Name: t.String()}
	}
	coerced, err := coerceScalar(name, t, def)
	if err != nil {
		return nil, err
	}

	if old, ok := r.props[name]; ok {
		if old.record.Dtype != t || old.record.Default != coerced {
			return nil, &PropertyConflictError{
				Name:                name,
				ExistingRegistrant:  old.record.Registrant,
				RequestedRegistrant: registrant,
				ExistingType:        old.record.Dtype,
				RequestedType:       t,
			}
		}
		return old, nil
	}

	settable := true
	if opts.Setter != nil {
		settable = *opts.Setter
	}
	h := &PropertyHandle{
		record: &PropertyRecord{
			Name:       name,
			Dtype:      t,
			Default:    coerced,
			Registrant: registrant,
		},
		value:    coerced,
		settable: settable,
	}
	r.props[name] = h
	r.porder = append(r.porder, name)
	r.log.V(1).Info("property registered", "name", name, "registrant", registrant,
		"dtype", t.String(), "default", coerced)
	return h, nil
}

// Property returns the handle registered under name.
func (r *Registry) Property(name string) (*PropertyHandle, error) {
	h, ok := r.props[name]
	if !ok {
		return nil, &UnknownPropertyError{Name: name}
	}
	return h, nil
}

// Properties returns all property handles in registration order.
func (r *Registry) Properties() []*PropertyHandle {
	out := make([]*PropertyHandle, 0, len(r.porder))
	for _, name := range r.porder {
		out = append(out, r.props[name])
	}
	return out
}

// coerceScalar validates v against the element type and converts it to the
// canonical representation for that type: float64 for floats, int64 for
// integers, complex128 for complex types.
func coerceScalar(name string, t dtype.Type, v any) (any, error) {
	mismatch := func() error {
		return &TypeMismatchError{Name: name, Want: t, Got: scalarType(v)}
	}
	switch t {
	case dtype.Float32, dtype.Float64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		default:
			return nil, mismatch()
		}
	case dtype.Int32, dtype.Int64, dtype.Uint8:
		var n int64
		switch x := v.(type) {
		case int:
			n = int64(x)
		case int32:
			n = int64(x)
		case int64:
			n = x
		default:
			return nil, mismatch()
		}
		if err := checkIntegerRange(name, t, n); err != nil {
			return nil, err
		}
		return n, nil
	case dtype.Complex64, dtype.Complex128:
		switch x := v.(type) {
		case complex128:
			return x, nil
		case complex64:
			return complex128(x), nil
		case float64:
			return complex(x, 0), nil
		default:
			return nil, mismatch()
		}
	default:
		return nil, &dtype.UnsupportedTypeError{Name: t.String()}
	}
}

// checkIntegerRange rejects integer values the element type cannot hold.
func checkIntegerRange(name string, t dtype.Type, n int64) error {
	var lo, hi int64
	switch t {
	case dtype.Uint8:
		lo, hi = 0, math.MaxUint8
	case dtype.Int32:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return nil
	}
	if n < lo || n > hi {
		return &ValueRangeError{Name: name, Type: t, Value: n}
	}
	return nil
}

// scalarType maps a Go scalar to the closest element type tag, for error
// reporting only.
func scalarType(v any) dtype.Type {
	switch v.(type) {
	case float32:
		return dtype.Float32
	case float64:
		return dtype.Float64
	case int, int64:
		return dtype.Int64
	case int32:
		return dtype.Int32
	case complex64:
		return dtype.Complex64
	case complex128:
		return dtype.Complex128
	default:
		return dtype.Invalid
	}
}
