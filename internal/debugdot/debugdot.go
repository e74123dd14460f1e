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

// Package debugdot renders a member's control-flow graph, and a
// composed slice over it, as DOT source for visual debugging — the
// same purpose the teacher's graphprinter served for a propagation
// graph, retargeted at a CFG's blocks and a slice's classified entries.
package debugdot

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/slicer"
)

func blockLabel(b *cfgmodel.BasicBlock) string {
	return fmt.Sprintf("b%d", b.Ordinal)
}

// PrintCFG renders cfg's blocks and edges as DOT source. Conditional
// edges are dashed so a reader can tell a taken-on-false fallthrough
// from a taken-on-true branch at a glance.
func PrintCFG(cfg *cfgmodel.ControlFlowGraph) string {
	var b bytes.Buffer
	b.WriteString("digraph cfg {\n")
	for _, blk := range cfg.Blocks {
		style := ""
		switch blk {
		case cfg.Entry:
			style = " [style=filled fillcolor=lightgray]"
		case cfg.Exit:
			style = " [style=filled fillcolor=gray]"
		}
		fmt.Fprintf(&b, "  %q%s;\n", blockLabel(blk), style)
		if blk.Conditional != nil {
			fmt.Fprintf(&b, "  %q -> %q [style=dashed label=\"true\"];\n", blockLabel(blk), blockLabel(blk.Conditional))
		}
		if blk.FallThrough != nil {
			label := ""
			if blk.Branch != nil {
				label = " [label=\"false\"]"
			}
			fmt.Fprintf(&b, "  %q -> %q%s;\n", blockLabel(blk), blockLabel(blk.FallThrough), label)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// relationColor mirrors graphprinter's source/sanitizer/sink coloring:
// red for a slice's sources, green for its transforms, blue for its
// sinks.
func relationColor(r slicer.Relation) string {
	switch r {
	case slicer.RelationSource:
		return "red"
	case slicer.RelationTransform:
		return "green"
	case slicer.RelationSink:
		return "blue"
	default:
		return "white"
	}
}

// PrintSlice renders cfg with every block touched by s's entries
// filled according to the strongest relation seen in that block
// (source beats transform beats sink, matching backward-slice reading
// order), so a reviewer can see at a glance where a slice's sources,
// transforms, and sinks fall across the member's control flow.
func PrintSlice(cfg *cfgmodel.ControlFlowGraph, s slicer.Slice) string {
	strongest := map[int]slicer.Relation{}
	hasEntry := map[int]bool{}
	for _, e := range s.Entries {
		cur, seen := strongest[e.Loc.Block]
		if !seen || e.Relation < cur {
			strongest[e.Loc.Block] = e.Relation
		}
		hasEntry[e.Loc.Block] = true
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "digraph %s_slice {\n", s.Direction)
	for _, blk := range cfg.Blocks {
		style := ""
		if hasEntry[blk.Ordinal] {
			style = fmt.Sprintf(" [style=filled fillcolor=%s]", relationColor(strongest[blk.Ordinal]))
		}
		fmt.Fprintf(&b, "  %q%s;\n", blockLabel(blk), style)
		if blk.Conditional != nil {
			fmt.Fprintf(&b, "  %q -> %q [style=dashed];\n", blockLabel(blk), blockLabel(blk.Conditional))
		}
		if blk.FallThrough != nil {
			fmt.Fprintf(&b, "  %q -> %q;\n", blockLabel(blk), blockLabel(blk.FallThrough))
		}
	}
	labels := containerLabels(s.ContainerRanges)
	sort.Strings(labels)
	for _, r := range labels {
		fmt.Fprintf(&b, "  // container: %s\n", r)
	}
	b.WriteString("}\n")
	return b.String()
}

func containerLabels(ranges []cfgmodel.SourceRange) []string {
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = fmt.Sprintf("%d:%d-%d:%d", r.StartLine, r.StartCol, r.EndLine, r.EndCol)
	}
	return out
}
