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

// Package transfer implements the dataflow transfer function: it maps
// an incoming FlowDomain to an outgoing one at a single ProgramLocation,
// combining mutation detection, read collection, alias analysis and
// control-flow dependence.
package transfer

import (
	"github.com/sharpfocus/sharpfocus/internal/alias"
	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/controldep"
	"github.com/sharpfocus/sharpfocus/internal/mutation"
	"github.com/sharpfocus/sharpfocus/internal/place"
)

// Context precomputes the per-CFG facts the transfer function consumes:
// mutations and reads by location, the alias analyzer, and control
// dependence. Build one Context per analysis run with NewContext, then
// call Apply once per worklist pop.
type Context struct {
	cfg         *cfgmodel.ControlFlowGraph
	mutations   map[cfgmodel.ProgramLocation][]cfgmodel.Mutation
	reads       map[cfgmodel.ProgramLocation][]cfgmodel.Place
	aliases     *alias.Analyzer
	controlDeps *controldep.Analyzer
}

// NewContext builds a transfer Context for cfg: it runs the Mutation
// Detector, collects reads per location, seeds and freezes the Alias
// Analyzer, and runs the Control-Dependence Analyzer.
func NewContext(cfg *cfgmodel.ControlFlowGraph) *Context {
	c := &Context{
		cfg:       cfg,
		mutations: make(map[cfgmodel.ProgramLocation][]cfgmodel.Mutation),
		reads:     make(map[cfgmodel.ProgramLocation][]cfgmodel.Place),
		aliases:   alias.New(),
	}

	for _, m := range mutation.Detect(cfg) {
		c.mutations[m.Loc] = append(c.mutations[m.Loc], m)
	}

	for _, b := range cfg.Blocks {
		for i, op := range b.Operations {
			loc := cfgmodel.ProgramLocation{Block: b.Ordinal, OpIndex: i}
			c.reads[loc] = collectReads(op)
			seedAliases(c.aliases, op)
		}
		if b.Branch != nil {
			loc := cfgmodel.ProgramLocation{Block: b.Ordinal, OpIndex: len(b.Operations)}
			c.reads[loc] = collectReads(b.Branch)
		}
	}

	c.controlDeps = controldep.New()
	c.controlDeps.Analyze(cfg)

	return c
}

// Aliases exposes the seeded alias analyzer for callers (e.g. the Slice
// Composer) that need to flatten aliases directly.
func (c *Context) Aliases() *alias.Analyzer { return c.aliases }

// ControlDeps exposes the control-dependence analyzer.
func (c *Context) ControlDeps() *controldep.Analyzer { return c.controlDeps }

// Reads returns the Places read at loc, per the collection rules in
// NewContext / collectReads.
func (c *Context) Reads(loc cfgmodel.ProgramLocation) []cfgmodel.Place {
	return c.reads[loc]
}

// Mutations returns the Mutations recorded at loc.
func (c *Context) Mutations(loc cfgmodel.ProgramLocation) []cfgmodel.Mutation {
	return c.mutations[loc]
}

// Apply computes the outgoing FlowDomain at loc given the incoming one.
// If loc has no mutations, it returns a clone of in (locations that
// neither read nor write still need immutable independent state for the
// engine's equality check).
func (c *Context) Apply(in cfgmodel.FlowDomain, loc cfgmodel.ProgramLocation) cfgmodel.FlowDomain {
	muts := c.mutations[loc]
	out := in.Clone()
	if len(muts) == 0 {
		return out
	}

	deps := cfgmodel.NewLocationSet(loc)
	for _, cd := range c.controlDeps.GetControlDependencies(loc) {
		deps.Add(cd)
	}
	for _, r := range c.reads[loc] {
		for _, a := range c.aliases.GetAliases(r) {
			deps.UnionInto(in.Get(a))
		}
	}

	for _, m := range muts {
		targets := c.aliases.GetAliases(m.Target)
		if len(targets) <= 1 {
			out.Set(m.Target, deps.Clone())
			continue
		}
		for _, t := range targets {
			out.Union(t, deps)
		}
	}

	return out
}

// collectReads walks op and gathers the Places read by it and its
// descendants, per the rule: every reference sub-operation is a read,
// except the left-hand side of a simple assignment (a pure write) and
// the value operand of an out-argument (receives a value, doesn't read
// one). Compound assignment and increment/decrement targets are both a
// read and a write, so they fall through to being collected normally.
func collectReads(op *cfgmodel.Operation) []cfgmodel.Place {
	var out []cfgmodel.Place
	var walk func(o *cfgmodel.Operation, skip bool)
	walk = func(o *cfgmodel.Operation, skip bool) {
		if o == nil {
			return
		}
		if !skip {
			if p, ok := place.TryCreate(o); ok {
				out = append(out, p)
			}
		}

		switch o.Kind {
		case cfgmodel.OpAssign:
			// LHS is a pure write; do not collect it as a read.
			walk(o.Target, true)
			walk(o.Value, false)
		case cfgmodel.OpCompoundAssign, cfgmodel.OpIncrement, cfgmodel.OpDecrement:
			walk(o.Target, false)
			walk(o.Value, false)
		case cfgmodel.OpArgument:
			if o.ArgRefKind == cfgmodel.ArgOut {
				// The value receives a write; it is not read.
				return
			}
			walk(o.ArgValue, false)
		case cfgmodel.OpVarDeclarator:
			walk(o.Initializer, false)
		case cfgmodel.OpMemberAccess:
			walk(o.Receiver, false)
		case cfgmodel.OpArrayElement:
			walk(o.Receiver, false)
		case cfgmodel.OpCall:
			for _, a := range o.Args {
				walk(a, false)
			}
		default:
			for _, c := range o.Children {
				walk(c, false)
			}
		}
	}
	walk(op, false)
	return out
}

// seedAliases walks every operation reachable from op and feeds each
// assignment/argument shape it finds into the alias analyzer's seeding
// rules, so seeding sees nested shapes (a call buried in a declarator
// initializer, an assignment nested in an argument) as well as
// statement-level ones.
func seedAliases(a *alias.Analyzer, op *cfgmodel.Operation) {
	op.Walk(func(o *cfgmodel.Operation) {
		switch o.Kind {
		case cfgmodel.OpAssign:
			targetPlace, tOK := place.TryCreate(o.Target)
			valuePlace, vOK := place.TryCreate(o.Value)
			if tOK && vOK {
				a.SeedAssignment(targetPlace, valuePlace, declType(o.Target), declType(o.Value))
			}

		case cfgmodel.OpVarDeclarator:
			if o.Declared == nil {
				return
			}
			declPlace := cfgmodel.NewPlace(*o.Declared, nil)
			if valuePlace, ok := place.TryCreate(o.Initializer); ok {
				a.SeedAssignment(declPlace, valuePlace, o.Declared.DeclType(), declType(o.Initializer))
			}

		case cfgmodel.OpCall:
			var refArgs []cfgmodel.Place
			for _, arg := range o.Args {
				if arg.Kind == cfgmodel.OpArgument && (arg.ArgRefKind == cfgmodel.ArgByRef || arg.ArgRefKind == cfgmodel.ArgOut) {
					if p, ok := place.TryCreate(arg.ArgValue); ok {
						refArgs = append(refArgs, p)
					}
				}
			}
			if len(refArgs) >= 2 {
				a.SeedRefArguments(refArgs)
			}
		}
	})
}

func declType(op *cfgmodel.Operation) cfgmodel.Type {
	if op == nil || op.Symbol == nil {
		return nil
	}
	return op.Symbol.DeclType()
}
