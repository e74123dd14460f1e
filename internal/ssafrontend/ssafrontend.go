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

// Package ssafrontend is the concrete Go frontend: it lowers a
// golang.org/x/tools/go/ssa function into the language-agnostic
// cfgmodel.ControlFlowGraph the rest of the engine operates over.
//
// SSA already linearizes control flow into basic blocks, so the
// lowering is mostly mechanical. The one real translation problem is
// recovering the Place shapes (OpLocalRef, OpMemberAccess,
// OpArrayElement, ...) that place.TryCreate expects from the address
// arithmetic SSA form exposes instead (Alloc, FieldAddr, IndexAddr,
// *ssa.UnOp dereference). buildRefOperation does that recovery
// structurally, at every use site, rather than trying to name SSA
// registers after source-level variables.
package ssafrontend

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/pkg/utils"
)

// Build lowers fn into a ControlFlowGraph. fn must have a body (no
// external or intrinsic functions); fset resolves instruction
// positions into SourceRange spans.
func Build(fn *ssa.Function, fset *token.FileSet) (*cfgmodel.ControlFlowGraph, error) {
	if fn == nil {
		return nil, errNilFunction
	}
	if len(fn.Blocks) == 0 {
		return nil, &NoBodyError{Func: fn}
	}

	b := &builder{
		fset:    fset,
		fn:      fn,
		symbols: make(map[ssa.Value]*cfgmodel.Symbol),
		blocks:  make(map[*ssa.BasicBlock]*cfgmodel.BasicBlock, len(fn.Blocks)),
	}
	return b.build(), nil
}

// NoBodyError reports that a requested member has no SSA body to
// analyze (it is declared but not defined in this package, e.g. an
// assembly stub or an external declaration).
type NoBodyError struct {
	Func *ssa.Function
}

func (e *NoBodyError) Error() string {
	return "ssafrontend: " + e.Func.String() + " has no body"
}

type nilFunctionError struct{}

func (nilFunctionError) Error() string { return "ssafrontend: nil function" }

var errNilFunction = nilFunctionError{}

// builder holds the per-function state needed to lower one *ssa.Function.
type builder struct {
	fset    *token.FileSet
	fn      *ssa.Function
	symbols map[ssa.Value]*cfgmodel.Symbol
	blocks  map[*ssa.BasicBlock]*cfgmodel.BasicBlock
}

func (b *builder) build() *cfgmodel.ControlFlowGraph {
	b.declareSymbols()

	cfg := &cfgmodel.ControlFlowGraph{}
	for _, blk := range b.fn.Blocks {
		cb := &cfgmodel.BasicBlock{Ordinal: blk.Index}
		b.blocks[blk] = cb
		cfg.Blocks = append(cfg.Blocks, cb)
	}
	cfg.Entry = b.blocks[b.fn.Blocks[0]]

	for _, blk := range b.fn.Blocks {
		cb := b.blocks[blk]
		for _, p := range blk.Preds {
			cb.Preds = append(cb.Preds, b.blocks[p])
		}
		b.lowerBlock(blk, cb)
		b.wireSuccessors(blk, cb)
	}

	b.attachHeaderSpans(cfg)
	b.attachExit(cfg)
	return cfg
}

// declareSymbols assigns a Symbol to every SSA value that can serve as
// a Place base: parameters, free variables (captured closure state) and
// every local register except the pure address-arithmetic shapes
// (FieldAddr, IndexAddr, Field, Index, and the load form of UnOp) that
// buildRefOperation recovers structurally instead.
func (b *builder) declareSymbols() {
	for _, p := range b.fn.Params {
		b.newSymbol(p, cfgmodel.SymbolParameter)
	}
	for _, fv := range b.fn.FreeVars {
		b.newSymbol(fv, cfgmodel.SymbolField)
	}
	for _, blk := range b.fn.Blocks {
		for _, instr := range blk.Instrs {
			switch t := instr.(type) {
			case *ssa.FieldAddr, *ssa.IndexAddr, *ssa.Field, *ssa.Index:
				continue
			case *ssa.UnOp:
				if t.Op == token.MUL {
					continue
				}
			}
			if v, ok := instr.(ssa.Value); ok {
				b.newSymbol(v, cfgmodel.SymbolLocal)
			}
		}
	}
}

func (b *builder) newSymbol(v ssa.Value, kind cfgmodel.SymbolKind) {
	if _, ok := b.symbols[v]; ok {
		return
	}
	s := cfgmodel.NewSymbol(v, v.Name(), kind, false, cfgmodel.GoType{T: v.Type()})
	b.symbols[v] = &s
}

func (b *builder) globalSymbol(g *ssa.Global) *cfgmodel.Symbol {
	if sym, ok := b.symbols[g]; ok {
		return sym
	}
	s := cfgmodel.NewSymbol(g, g.Name(), cfgmodel.SymbolField, true, cfgmodel.GoType{T: g.Type()})
	b.symbols[g] = &s
	return &s
}

func (b *builder) lowerBlock(blk *ssa.BasicBlock, cb *cfgmodel.BasicBlock) {
	for _, instr := range blk.Instrs {
		switch t := instr.(type) {
		case *ssa.DebugRef, *ssa.Jump, *ssa.RunDefers,
			*ssa.Alloc, *ssa.FieldAddr, *ssa.IndexAddr, *ssa.Field, *ssa.Index:
			continue
		case *ssa.UnOp:
			if t.Op == token.MUL {
				continue
			}
			cb.Operations = append(cb.Operations, b.declareOp(instr, t))
		case *ssa.If:
			cb.Branch = b.branchOp(t)
		case *ssa.Store:
			cb.Operations = append(cb.Operations, b.storeOp(t))
		case *ssa.Return:
			cb.Operations = append(cb.Operations, b.returnOp(t))
		case *ssa.Panic, *ssa.Send, *ssa.MapUpdate:
			cb.Operations = append(cb.Operations, b.opaqueStmt(instr, instr.Pos()))
		case ssa.CallInstruction:
			cb.Operations = append(cb.Operations, b.callStmt(t))
		default:
			if v, ok := instr.(ssa.Value); ok {
				cb.Operations = append(cb.Operations, b.declareOp(instr, v))
			}
		}
	}
}

func (b *builder) wireSuccessors(blk *ssa.BasicBlock, cb *cfgmodel.BasicBlock) {
	switch len(blk.Succs) {
	case 0:
		return
	case 1:
		cb.FallThrough = b.blocks[blk.Succs[0]]
	default:
		// go/ssa guarantees an If-terminated block has exactly two
		// successors: Succs[0] is taken when Cond is true, Succs[1]
		// when false.
		cb.Conditional = b.blocks[blk.Succs[0]]
		cb.FallThrough = b.blocks[blk.Succs[1]]
	}
}

// attachHeaderSpans copies each branching block's own condition span
// onto itself as a HeaderSpan, so the Slice Composer can report the
// if/loop header line as a container range.
func (b *builder) attachHeaderSpans(cfg *cfgmodel.ControlFlowGraph) {
	for _, cb := range cfg.Blocks {
		if cb.Branch != nil && cb.Branch.Span != nil {
			span := *cb.Branch.Span
			cb.HeaderSpan = &span
		}
	}
}

// attachExit gives the graph a single Exit block, as the
// Control-Dependence Analyzer's post-dominator computation requires. A
// function with more than one real exit (multiple returns, a return
// alongside a panic path) gets a synthetic sink joining them, the
// standard construction for post-dominance over multi-exit graphs.
func (b *builder) attachExit(cfg *cfgmodel.ControlFlowGraph) {
	var exits []*cfgmodel.BasicBlock
	for _, cb := range cfg.Blocks {
		if cb.FallThrough == nil && cb.Conditional == nil {
			exits = append(exits, cb)
		}
	}
	switch len(exits) {
	case 0:
		return
	case 1:
		cfg.Exit = exits[0]
	default:
		sink := &cfgmodel.BasicBlock{Ordinal: len(cfg.Blocks)}
		for _, e := range exits {
			e.FallThrough = sink
			sink.Preds = append(sink.Preds, e)
		}
		cfg.Blocks = append(cfg.Blocks, sink)
		cfg.Exit = sink
	}
}

func (b *builder) spanOf(pos token.Pos) *cfgmodel.SourceRange {
	if !pos.IsValid() || b.fset == nil {
		return nil
	}
	p := b.fset.Position(pos)
	return &cfgmodel.SourceRange{
		StartLine: p.Line - 1,
		StartCol:  p.Column - 1,
		EndLine:   p.Line - 1,
		EndCol:    p.Column,
	}
}

// buildRefOperation returns the ref-shaped Operation v denotes as an
// address or place-bearing value, or nil if v is not such a shape. It
// recurses structurally through address arithmetic (FieldAddr,
// IndexAddr, the load form of UnOp) rather than consulting the symbol
// table, so two independently computed addresses of the same field
// still produce structurally equal Places.
func (b *builder) buildRefOperation(v ssa.Value) *cfgmodel.Operation {
	switch t := v.(type) {
	case *ssa.Parameter:
		sym, ok := b.symbols[v]
		if !ok {
			return nil
		}
		return &cfgmodel.Operation{Kind: cfgmodel.OpParameterRef, Symbol: sym}

	case *ssa.FreeVar:
		sym, ok := b.symbols[v]
		if !ok {
			return nil
		}
		return &cfgmodel.Operation{Kind: cfgmodel.OpFieldRef, Symbol: sym}

	case *ssa.Global:
		return &cfgmodel.Operation{Kind: cfgmodel.OpFieldRef, Symbol: b.globalSymbol(t)}

	case *ssa.Alloc:
		sym, ok := b.symbols[v]
		if !ok {
			return nil
		}
		return &cfgmodel.Operation{Kind: cfgmodel.OpLocalRef, Symbol: sym}

	case *ssa.FieldAddr:
		base := b.buildRefOperation(t.X)
		if base == nil {
			return nil
		}
		return &cfgmodel.Operation{Kind: cfgmodel.OpMemberAccess, Receiver: base, MemberName: fieldName(t.X.Type(), t.Field), AccessKind: cfgmodel.AccessField}

	case *ssa.Field:
		base := b.buildRefOperation(t.X)
		if base == nil {
			return nil
		}
		return &cfgmodel.Operation{Kind: cfgmodel.OpMemberAccess, Receiver: base, MemberName: fieldName(t.X.Type(), t.Field), AccessKind: cfgmodel.AccessField}

	case *ssa.IndexAddr:
		base := b.buildRefOperation(t.X)
		if base == nil {
			return nil
		}
		return &cfgmodel.Operation{Kind: cfgmodel.OpArrayElement, Receiver: base}

	case *ssa.Index:
		base := b.buildRefOperation(t.X)
		if base == nil {
			return nil
		}
		return &cfgmodel.Operation{Kind: cfgmodel.OpArrayElement, Receiver: base}

	case *ssa.UnOp:
		if t.Op == token.MUL {
			return b.buildRefOperation(t.X)
		}
		return nil

	default:
		return nil
	}
}

func fieldName(recvType types.Type, field int) string {
	_, _, name := utils.DecomposeField(recvType, field)
	return name
}

// operandOperation builds the read-shape for a value used as an
// operand: a ref if v addresses a Place, a plain local reference if v
// is a previously declared register, or an opaque leaf for constants
// and anything else unresolvable.
func (b *builder) operandOperation(v ssa.Value) *cfgmodel.Operation {
	if v == nil {
		return &cfgmodel.Operation{Kind: cfgmodel.OpOpaque}
	}
	if ref := b.buildRefOperation(v); ref != nil {
		return ref
	}
	if sym, ok := b.symbols[v]; ok {
		return &cfgmodel.Operation{Kind: cfgmodel.OpLocalRef, Symbol: sym}
	}
	return &cfgmodel.Operation{Kind: cfgmodel.OpOpaque}
}

// genericReadOp wraps every operand slot an instruction exposes (via
// its Operands accessor) as Children of an opaque read, the shape
// collectReads's default case walks. This covers every pure-value
// instruction (BinOp, Convert, Phi, MakeInterface, Extract, ...)
// without a type switch per SSA opcode.
func (b *builder) genericReadOp(instr ssa.Instruction) *cfgmodel.Operation {
	var buf [8]*ssa.Value
	rands := instr.Operands(buf[:0])
	children := make([]*cfgmodel.Operation, 0, len(rands))
	for _, r := range rands {
		if r == nil || *r == nil {
			continue
		}
		children = append(children, b.operandOperation(*r))
	}
	return &cfgmodel.Operation{Kind: cfgmodel.OpOpaque, Children: children}
}

func (b *builder) declareOp(instr ssa.Instruction, v ssa.Value) *cfgmodel.Operation {
	sym := b.symbols[v]
	init := b.genericReadOp(instr)
	return &cfgmodel.Operation{Kind: cfgmodel.OpVarDeclarator, Span: b.spanOf(instr.Pos()), Declared: sym, Initializer: init}
}

func (b *builder) opaqueStmt(instr ssa.Instruction, pos token.Pos) *cfgmodel.Operation {
	op := b.genericReadOp(instr)
	op.Span = b.spanOf(pos)
	return op
}

func (b *builder) branchOp(instr *ssa.If) *cfgmodel.Operation {
	op := b.operandOperation(instr.Cond)
	if op.Span == nil {
		op.Span = b.spanOf(instr.Pos())
	}
	return op
}

func (b *builder) storeOp(instr *ssa.Store) *cfgmodel.Operation {
	span := b.spanOf(instr.Pos())
	target := b.buildRefOperation(instr.Addr)
	if target == nil {
		// The address isn't one we can resolve to a Place (e.g. a
		// store through a value that escaped our analysis); keep the
		// write's source operand visible as a read rather than
		// dropping the statement entirely.
		return &cfgmodel.Operation{Kind: cfgmodel.OpOpaque, Span: span, Children: []*cfgmodel.Operation{b.operandOperation(instr.Val)}}
	}
	return &cfgmodel.Operation{Kind: cfgmodel.OpAssign, Span: span, Target: target, Value: b.operandOperation(instr.Val)}
}

func (b *builder) returnOp(instr *ssa.Return) *cfgmodel.Operation {
	children := make([]*cfgmodel.Operation, 0, len(instr.Results))
	for _, r := range instr.Results {
		children = append(children, b.operandOperation(r))
	}
	return &cfgmodel.Operation{Kind: cfgmodel.OpOpaque, Span: b.spanOf(instr.Pos()), Children: children}
}

func (b *builder) callStmt(instr ssa.CallInstruction) *cfgmodel.Operation {
	op := b.buildCallOp(instr.Common(), instr.Pos())
	if v, ok := instr.(ssa.Value); ok {
		if sym, ok := b.symbols[v]; ok {
			return &cfgmodel.Operation{Kind: cfgmodel.OpVarDeclarator, Span: op.Span, Declared: sym, Initializer: op}
		}
	}
	return op
}

func (b *builder) buildCallOp(common *ssa.CallCommon, pos token.Pos) *cfgmodel.Operation {
	sig := common.Signature()
	args := make([]*cfgmodel.Operation, 0, len(common.Args))
	for i, a := range common.Args {
		args = append(args, b.argOp(a, paramTypeAt(sig, i)))
	}
	return &cfgmodel.Operation{Kind: cfgmodel.OpCall, Span: b.spanOf(pos), Args: args}
}

// argOp wraps a call argument, classifying it as a by-reference pass
// whenever the callee's parameter type is a pointer: the only signal
// Go's calling convention gives us for an out-parameter idiom like
// json.Unmarshal's second argument.
func (b *builder) argOp(v ssa.Value, paramType types.Type) *cfgmodel.Operation {
	kind := cfgmodel.ArgByValue
	if paramType != nil {
		if _, isPtr := paramType.Underlying().(*types.Pointer); isPtr {
			kind = cfgmodel.ArgByRef
		}
	}
	return &cfgmodel.Operation{Kind: cfgmodel.OpArgument, ArgValue: b.operandOperation(v), ArgRefKind: kind}
}

func paramTypeAt(sig *types.Signature, i int) types.Type {
	if sig == nil {
		return nil
	}
	n := sig.Params().Len()
	if n == 0 {
		return nil
	}
	if sig.Variadic() && i >= n-1 {
		if s, ok := sig.Params().At(n - 1).Type().(*types.Slice); ok {
			return s.Elem()
		}
		return sig.Params().At(n - 1).Type()
	}
	if i < n {
		return sig.Params().At(i).Type()
	}
	return nil
}
