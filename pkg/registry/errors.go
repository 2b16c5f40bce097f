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

	"github.com/rime-sim/rime-solver-runtime/pkg/dtype"
)

// ArrayConflictError reports a re-registration whose shape or type differs
// from the existing record. Both registrants are named so the colliding
// stages can be identified from the error alone.
type ArrayConflictError struct {
	Name                string
	ExistingRegistrant  string
	RequestedRegistrant string
	ExistingShape       []int
	RequestedShape      []int
	ExistingType        dtype.Type
	RequestedType       dtype.Type
}

func (e *ArrayConflictError) Error() string {
	return fmt.Sprintf(
		"array %q is already registered by %q with shape %v and type %s, which conflicts with shape %v and type %s requested by %q",
		e.Name, e.ExistingRegistrant, e.ExistingShape, e.ExistingType,
		e.RequestedShape, e.RequestedType, e.RequestedRegistrant)
}

// PropertyConflictError reports a re-registration of a property with a
// different type or default.
type PropertyConflictError struct {
	Name                string
	ExistingRegistrant  string
	RequestedRegistrant string
	ExistingType        dtype.Type
	RequestedType       dtype.Type
}

func (e *PropertyConflictError) Error() string {
	return fmt.Sprintf(
		"property %q is already registered by %q with type %s, which conflicts with type %s requested by %q",
		e.Name, e.ExistingRegistrant, e.ExistingType, e.RequestedType, e.RequestedRegistrant)
}

// ShapeMismatchError reports a buffer write whose shape disagrees with the
// registered record.
type ShapeMismatchError struct {
	Name string
	Want []int
	Got  []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("array %q has shape %v, which differs from the shape %v of the supplied data", e.Name, e.Want, e.Got)
}

// TypeMismatchError reports a buffer write whose element type disagrees
// with the registered record.
type TypeMismatchError struct {
	Name string
	Want dtype.Type
	Got  dtype.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("array %q has type %s, which differs from the type %s of the supplied data", e.Name, e.Want, e.Got)
}

// ValueRangeError reports a property assignment whose value does not fit
// the property's element type.
type ValueRangeError struct {
	Name  string
	Type  dtype.Type
	Value int64
}

func (e *ValueRangeError) Error() string {
	return fmt.Sprintf("value %d is out of range for %s property %q", e.Value, e.Type, e.Name)
}

// UnknownArrayError reports a lookup or check against a name that was never
// registered.
type UnknownArrayError struct {
	Name string
}

func (e *UnknownArrayError) Error() string {
	return fmt.Sprintf("no array registered under %q", e.Name)
}

// UnknownPropertyError reports a lookup against an unregistered property.
type UnknownPropertyError struct {
	Name string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("no property registered under %q", e.Name)
}
