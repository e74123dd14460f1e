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
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/ssa"
)

// NoEnclosingFunctionError reports that a requested (line, character)
// falls outside every function declared in the document, e.g. a cursor
// sitting on an import line or a top-level var declaration.
type NoEnclosingFunctionError struct {
	Line, Character int
}

func (e *NoEnclosingFunctionError) Error() string {
	return fmt.Sprintf("ssafrontend: no function encloses %d:%d", e.Line, e.Character)
}

// FunctionAt loads filename/src and returns the SSA function whose
// declaration encloses the zero-based (line, character) position, and
// the FileSet it was built against. It does not lower the function to a
// CFG; Build does that.
//
// character is treated as a byte offset into the line rather than a
// UTF-16 code unit count; documents using non-ASCII identifiers near
// the cursor may resolve a few bytes off. A production LSP server would
// carry the client's negotiated position encoding through to here.
func FunctionAt(filename, src string, line, character int) (*ssa.Function, *token.FileSet, error) {
	pkg, fset, err := LoadFile(filename, src)
	if err != nil {
		return nil, nil, err
	}

	// LoadFile already parsed filename into fset once for type-checking;
	// parsing again here is cheap (single file, already in memory) and
	// keeps FunctionAt independent of LoadFile's internal AST handling.
	file, err := parser.ParseFile(fset, filename, src, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("ssafrontend: re-parsing %s: %w", filename, err)
	}

	tf := fset.File(file.Pos())
	if tf == nil || line < 0 || line+1 > tf.LineCount() || character < 0 {
		return nil, nil, &NoEnclosingFunctionError{Line: line, Character: character}
	}
	pos := tf.LineStart(line+1) + token.Pos(character)

	var decl *ast.FuncDecl
	for _, d := range file.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if fd.Pos() <= pos && pos < fd.End() {
			decl = fd
			break
		}
	}
	if decl == nil {
		return nil, nil, &NoEnclosingFunctionError{Line: line, Character: character}
	}

	fn := FindFunction(pkg, decl.Name.Name, receiverTypeName(decl))
	if fn == nil {
		return nil, nil, &NoEnclosingFunctionError{Line: line, Character: character}
	}
	return fn, fset, nil
}

// receiverTypeName returns the unqualified receiver type name of a
// method declaration, or "" for a plain function.
func receiverTypeName(decl *ast.FuncDecl) string {
	if decl.Recv == nil || len(decl.Recv.List) == 0 {
		return ""
	}
	expr := decl.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	case *ast.IndexListExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	return ""
}
