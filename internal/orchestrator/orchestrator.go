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

// Package orchestrator binds the five sharpfocus LSP request kinds to
// the analysis pipeline described by the specification: resolve the
// cursor to a member and a Place, run (or reuse a cached run of) the
// dataflow engine over that member's CFG, compose the requested
// slice(s), and translate the result into client-facing ranges.
//
// The pipeline mirrors the teacher's analysis.Analyzer{Requires: [...]}
// chaining idiom, but as an explicit sequence of steps in analyze rather
// than a Requires graph, since a single LSP request only ever needs one
// straight-line path through it: member -> cache -> engine -> place ->
// composer. The focus Place is resolved only after the member's Results
// are obtained, so a cursor that denotes no Place still runs the engine
// (or reuses a cached run) before the request answers null.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sharpfocus/sharpfocus/internal/cache"
	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/config"
	"github.com/sharpfocus/sharpfocus/internal/crossmember"
	"github.com/sharpfocus/sharpfocus/internal/engine"
	"github.com/sharpfocus/sharpfocus/internal/slicer"
	"github.com/sharpfocus/sharpfocus/internal/ssafrontend"
	"github.com/sharpfocus/sharpfocus/internal/workspace"
)

// InvalidStateError reports a programmer error: a request reached a
// pipeline stage whose preconditions the caller failed to establish
// (e.g. a ProgramLocation that does not belong to the CFG it is paired
// with). It is never expected from well-formed LSP traffic; surfacing
// it distinctly lets the lspserver boundary log it as a bug rather than
// the routine "not applicable" case.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return "orchestrator: invalid state: " + e.Reason
}

// Position is a zero-based (line, character) cursor position, per LSP.
type Position struct {
	Line      int
	Character int
}

// Range is a zero-based, end-exclusive source range, per LSP.
type Range struct {
	StartLine, StartCharacter int
	EndLine, EndCharacter     int
}

// PlaceInfo is the client-facing description of a focused Place.
type PlaceInfo struct {
	Name  string
	Range Range
	Kind  string
}

// SliceRangeDetail is one classified entry of a composed slice.
type SliceRangeDetail struct {
	Range         Range
	Place         PlaceInfo
	Relation      string
	OperationKind string
	Summary       string
}

// SliceResponse is the wire shape shared by backwardSlice, forwardSlice,
// and the slice halves of flowAnalysis and focusMode.
type SliceResponse struct {
	Direction         string
	FocusedPlace      PlaceInfo
	SliceRanges       []Range
	SliceRangeDetails []SliceRangeDetail
	ContainerRanges   []Range
}

// FocusResponse is the sharpfocus/focus result: the focused Place's
// dependencies (its backward slice, presented as "what this depends
// on") plus the blocks that control whether they execute.
type FocusResponse struct {
	FocusedPlace           PlaceInfo
	DependencyRanges       []Range
	DependencyRangeDetails []SliceRangeDetail
	ContainerRanges        []Range
}

// FocusModeResponse is the sharpfocus/focusMode result: both slice
// directions unioned into one relevance set, plus their raw halves.
type FocusModeResponse struct {
	FocusedPlace    PlaceInfo
	RelevantRanges  []Range
	ContainerRanges []Range
	BackwardSlice   *SliceResponse
	ForwardSlice    *SliceResponse
}

// FlowAnalysisResponse is the sharpfocus/flowAnalysis result: both
// slice directions, reported independently.
type FlowAnalysisResponse struct {
	BackwardSlice *SliceResponse
	ForwardSlice  *SliceResponse
}

// Orchestrator wires the workspace, cache, and configuration
// collaborators into the request pipeline. It holds no per-request
// state of its own; all of that lives in the cache.
type Orchestrator struct {
	ws       *workspace.Workspace
	cache    *cache.Cache
	cfg      *config.Config
	log      *slog.Logger
	resolver crossmember.Resolver

	keysMu sync.Mutex
	keys   map[cache.Key]*sync.Mutex
}

// New returns an Orchestrator over ws and c. cfg may be nil (Default()
// is used); logger may be nil (slog.Default() is used); resolver may be
// nil (crossmember.NewNoop() is used, matching the current single-member
// slicing scope).
func New(ws *workspace.Workspace, c *cache.Cache, cfg *config.Config, logger *slog.Logger, resolver crossmember.Resolver) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = crossmember.NewNoop()
	}
	return &Orchestrator{
		ws:       ws,
		cache:    c,
		cfg:      cfg,
		log:      logger,
		resolver: resolver,
		keys:     make(map[cache.Key]*sync.Mutex),
	}
}

// lockFor returns the per-(document,member) mutex serializing
// concurrent analysis of key, generalizing the teacher's process-wide
// sync.Once config cache into a keyed one: two requests racing on the
// same member block on each other, but unrelated members never do.
func (o *Orchestrator) lockFor(key cache.Key) *sync.Mutex {
	o.keysMu.Lock()
	defer o.keysMu.Unlock()
	m, ok := o.keys[key]
	if !ok {
		m = &sync.Mutex{}
		o.keys[key] = m
	}
	return m
}

// analysis bundles the per-request pipeline state once a focus Place
// has been resolved.
type analysis struct {
	cfg        *cfgmodel.ControlFlowGraph
	results    *engine.Results
	focusLoc   cfgmodel.ProgramLocation
	focusPlace cfgmodel.Place
	focusRange cfgmodel.SourceRange
}

// analyze runs the pipeline's first three stages: resolve the member
// containing pos, obtain (from cache or a fresh engine run) that
// member's analysis Results, and then resolve pos to a focus Place.
//
// A nil *analysis with a nil error means "not applicable": the caller
// should respond with the LSP null per the specification's error
// handling table. A non-nil error other than context.Canceled
// indicates a programmer error and is always an *InvalidStateError or
// wraps one; context.Canceled must be propagated, not logged as a bug.
func (o *Orchestrator) analyze(ctx context.Context, uri string, pos Position) (*analysis, error) {
	doc, ok := o.ws.Get(uri)
	if !ok {
		o.log.Debug("document not open", "uri", uri)
		return nil, nil
	}
	if o.cfg.IsExcluded(pathOf(uri)) {
		o.log.Debug("document excluded by configuration", "uri", uri)
		return nil, nil
	}

	fn, fset, err := ssafrontend.FunctionAt(pathOf(uri), doc.Text, pos.Line, pos.Character)
	if err != nil {
		var noFunc *ssafrontend.NoEnclosingFunctionError
		if errors.As(err, &noFunc) {
			o.log.Debug("no enclosing function at position", "uri", uri, "line", pos.Line, "character", pos.Character)
			return nil, nil
		}
		// Parse/type-check failure: the document is mid-edit and not
		// presently analyzable. Not applicable, not a server bug.
		o.log.Debug("document not analyzable", "uri", uri, "error", err)
		return nil, nil
	}

	cfg, err := ssafrontend.Build(fn, fset)
	if err != nil {
		var noBody *ssafrontend.NoBodyError
		if errors.As(err, &noBody) {
			o.log.Debug("enclosing function has no body", "uri", uri, "func", fn.String())
			return nil, nil
		}
		return nil, &InvalidStateError{Reason: fmt.Sprintf("building CFG for %s: %v", fn, err)}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cache.Key{Doc: cache.DocumentURI(uri), Member: cache.MemberID(memberID(fn))}
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	fp := cache.Fingerprint([]byte(doc.Text))
	results, ok := o.cache.Get(key, fp)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = engine.Run(cfg)
		if err := ctx.Err(); err != nil {
			// Discard the completed run rather than cache it: the
			// caller asked to stop, so this result must not outlive
			// the request that produced it as far as the cache cares.
			return nil, err
		}
		o.cache.Put(key, fp, results)
	}

	loc, op := locateOperation(cfg, pos.Line, pos.Character)
	if op == nil {
		o.log.Debug("no operation at position", "uri", uri, "line", pos.Line, "character", pos.Character)
		return nil, nil
	}
	focusPlace, ok := resolveFocusPlace(op)
	if !ok {
		o.log.Debug("position does not denote a place", "uri", uri, "line", pos.Line, "character", pos.Character)
		return nil, nil
	}

	if o.resolver.ReachesMember(focusPlace) {
		o.log.Debug("focus place may be observed outside this member",
			"uri", uri, "place", focusPlace.String(), "sharedPlaces", len(o.resolver.SharedPlaces(focusPlace)))
	}

	return &analysis{
		cfg:        cfg,
		results:    results,
		focusLoc:   loc,
		focusPlace: focusPlace,
		focusRange: *op.Span,
	}, nil
}

// BackwardSlice implements sharpfocus/backwardSlice.
func (o *Orchestrator) BackwardSlice(ctx context.Context, uri string, pos Position) (*SliceResponse, error) {
	a, err := o.analyze(ctx, uri, pos)
	if err != nil || a == nil {
		return nil, err
	}
	s := slicer.Backward(a.cfg, a.results, a.focusLoc, a.focusPlace)
	resp := toSliceResponse(a.cfg, s, a.focusRange, o.cfg.MaxContainerRanges)
	return &resp, nil
}

// ForwardSlice implements sharpfocus/forwardSlice.
func (o *Orchestrator) ForwardSlice(ctx context.Context, uri string, pos Position) (*SliceResponse, error) {
	a, err := o.analyze(ctx, uri, pos)
	if err != nil || a == nil {
		return nil, err
	}
	s := slicer.Forward(a.cfg, a.results, a.focusLoc, a.focusPlace)
	resp := toSliceResponse(a.cfg, s, a.focusRange, o.cfg.MaxContainerRanges)
	return &resp, nil
}

// FlowAnalysis implements sharpfocus/flowAnalysis: both slice
// directions, computed over one shared analysis pass.
func (o *Orchestrator) FlowAnalysis(ctx context.Context, uri string, pos Position) (*FlowAnalysisResponse, error) {
	a, err := o.analyze(ctx, uri, pos)
	if err != nil || a == nil {
		return nil, err
	}
	back := toSliceResponse(a.cfg, slicer.Backward(a.cfg, a.results, a.focusLoc, a.focusPlace), a.focusRange, o.cfg.MaxContainerRanges)
	fwd := toSliceResponse(a.cfg, slicer.Forward(a.cfg, a.results, a.focusLoc, a.focusPlace), a.focusRange, o.cfg.MaxContainerRanges)
	return &FlowAnalysisResponse{BackwardSlice: &back, ForwardSlice: &fwd}, nil
}

// Focus implements sharpfocus/focus: the focused Place's dependencies,
// i.e. its backward slice, presented under the focus/dependency naming
// the method uses instead of slice/direction naming.
func (o *Orchestrator) Focus(ctx context.Context, uri string, pos Position) (*FocusResponse, error) {
	a, err := o.analyze(ctx, uri, pos)
	if err != nil || a == nil {
		return nil, err
	}
	s := toSliceResponse(a.cfg, slicer.Backward(a.cfg, a.results, a.focusLoc, a.focusPlace), a.focusRange, o.cfg.MaxContainerRanges)
	return &FocusResponse{
		FocusedPlace:           s.FocusedPlace,
		DependencyRanges:       s.SliceRanges,
		DependencyRangeDetails: s.SliceRangeDetails,
		ContainerRanges:        s.ContainerRanges,
	}, nil
}

// FocusMode implements sharpfocus/focusMode: both directions, unioned
// into one relevance set for whole-screen highlighting, alongside the
// two raw halves for callers that want to distinguish them.
func (o *Orchestrator) FocusMode(ctx context.Context, uri string, pos Position) (*FocusModeResponse, error) {
	a, err := o.analyze(ctx, uri, pos)
	if err != nil || a == nil {
		return nil, err
	}
	back := toSliceResponse(a.cfg, slicer.Backward(a.cfg, a.results, a.focusLoc, a.focusPlace), a.focusRange, o.cfg.MaxContainerRanges)
	fwd := toSliceResponse(a.cfg, slicer.Forward(a.cfg, a.results, a.focusLoc, a.focusPlace), a.focusRange, o.cfg.MaxContainerRanges)

	seen := map[Range]bool{}
	var relevant []Range
	containerSeen := map[Range]bool{}
	var containers []Range
	for _, s := range [2]*SliceResponse{&back, &fwd} {
		for _, r := range s.SliceRanges {
			if !seen[r] {
				seen[r] = true
				relevant = append(relevant, r)
			}
		}
		for _, r := range s.ContainerRanges {
			if !containerSeen[r] {
				containerSeen[r] = true
				containers = append(containers, r)
			}
		}
	}

	return &FocusModeResponse{
		FocusedPlace:    back.FocusedPlace,
		RelevantRanges:  relevant,
		ContainerRanges: containers,
		BackwardSlice:   &back,
		ForwardSlice:    &fwd,
	}, nil
}

// InvalidateDocument drops every cached analysis for uri, so the next
// request recomputes from scratch. Callers with member-boundary
// knowledge may prefer cache.Cache's Invalidate for a single key; this is the
// coarse fallback didChange uses when boundaries may have shifted.
func (o *Orchestrator) InvalidateDocument(uri string) {
	o.cache.InvalidateDocument(cache.DocumentURI(uri))
}

// pathOf strips the scheme off a file:// URI; every other scheme is
// passed through unchanged since this server only ever opens files.
func pathOf(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
