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

// Package crossmember is the inter-procedural extension point the
// Orchestrator calls into before composing a single-member slice.
// Inter-procedural slicing is out of scope: every Resolver returned here
// reports no cross-member contribution, but the hook itself is wired and
// exercised so a future resolver can be dropped in without touching the
// Orchestrator.
package crossmember

import "github.com/sharpfocus/sharpfocus/internal/cfgmodel"

// Resolver answers what a member does with its parameters, the same
// shape as a call-graph summary would need: whether a parameter reaches
// a sink elsewhere, and which places it shares with the caller's frame.
type Resolver interface {
	// ReachesMember reports whether a value flowing out of p could be
	// observed by another member (e.g. passed to a callee, stored to a
	// field read elsewhere).
	ReachesMember(p cfgmodel.Place) bool

	// SharedPlaces returns the places a cross-member resolver believes
	// alias p outside the current member's frame.
	SharedPlaces(p cfgmodel.Place) []cfgmodel.Place
}

// noop is the zero-value Resolver: it contributes nothing. It exists so
// the Orchestrator always has a non-nil Resolver to call, matching the
// spec's decision to leave inter-procedural slicing unimplemented
// without special-casing nil at every call site.
type noop struct{}

// NewNoop returns the inert Resolver used until an inter-procedural
// implementation is built.
func NewNoop() Resolver { return noop{} }

func (noop) ReachesMember(cfgmodel.Place) bool             { return false }
func (noop) SharedPlaces(cfgmodel.Place) []cfgmodel.Place { return nil }
