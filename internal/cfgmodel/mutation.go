// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfgmodel

// MutationKind classifies the shape of a write event.
type MutationKind int

const (
	MutationAssignment MutationKind = iota
	MutationCompoundAssignment
	MutationIncrement
	MutationDecrement
	MutationRefArgument
	MutationOutArgument
	MutationInitialization
)

func (k MutationKind) String() string {
	switch k {
	case MutationAssignment:
		return "Assignment"
	case MutationCompoundAssignment:
		return "CompoundAssignment"
	case MutationIncrement:
		return "Increment"
	case MutationDecrement:
		return "Decrement"
	case MutationRefArgument:
		return "RefArgument"
	case MutationOutArgument:
		return "OutArgument"
	case MutationInitialization:
		return "Initialization"
	default:
		return "Unknown"
	}
}

// Mutation is a single write event: a target Place written at a
// ProgramLocation, classified by kind. IsWrite is always true; it exists
// so Mutation can satisfy interfaces shared with read-only events
// without forcing callers to special-case it.
type Mutation struct {
	Target Place
	Loc    ProgramLocation
	Kind   MutationKind
}

// IsWrite always returns true for a Mutation.
func (Mutation) IsWrite() bool { return true }
