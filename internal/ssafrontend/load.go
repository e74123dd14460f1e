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

package ssafrontend

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/sharpfocus/sharpfocus/internal/pkg/utils"
)

// LoadFile type-checks and builds the SSA form of a single open
// document in isolation, mirroring at file scope what buildssa.Analyzer
// does at package scope for the teacher's whole-program checkers. Only
// the standard library's exported API is resolved for imports; a
// document importing anything go/importer.Default cannot see returns
// an error the Orchestrator treats as "not analyzable" for this
// request rather than a failure.
func LoadFile(filename, src string) (*ssa.Package, *token.FileSet, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("ssafrontend: parsing %s: %w", filename, err)
	}

	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
	conf := types.Config{Importer: importer.Default(), Error: func(error) {}}
	pkg, err := conf.Check(file.Name.Name, fset, []*ast.File{file}, info)
	if err != nil {
		// A document an editor is mid-edit on is type-incorrect far
		// more often than not; refuse it rather than risk handing
		// ssa.Build an inconsistent AST/types pairing.
		return nil, nil, fmt.Errorf("ssafrontend: type-checking %s: %w", filename, err)
	}

	prog := ssa.NewProgram(fset, ssa.BuilderMode(0))
	ssaPkg := prog.CreatePackage(pkg, []*ast.File{file}, info, false)
	ssaPkg.Build()
	return ssaPkg, fset, nil
}

// FindFunction locates the function or method member named name in
// pkg. recv is the unqualified receiver type name for a method lookup,
// or "" for a top-level function.
func FindFunction(pkg *ssa.Package, name, recv string) *ssa.Function {
	for fn := range ssautil.AllFunctions(pkg.Prog) {
		if fn.Pkg != pkg || fn.Name() != name {
			continue
		}
		r := fn.Signature.Recv()
		if recv == "" {
			if r == nil {
				return fn
			}
			continue
		}
		if r != nil && recvBaseName(r.Type()) == recv {
			return fn
		}
	}
	return nil
}

// recvBaseName returns a receiver type's unqualified name with any
// generic type argument list stripped, so a method on an instantiated
// receiver (e.g. "Stack[int]") still matches the bare receiver name
// receiverTypeName reads off the AST declaration (e.g. "Stack").
func recvBaseName(t types.Type) string {
	name := utils.UnqualifiedName(t)
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}
