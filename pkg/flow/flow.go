// Package flow builds a module/function call graph from the call_stack
// metadata that some services attach to their log lines:
//
//	[metadata:{"call_stack":[{"file":"app/main.py","function":"run"}, ...]}]
package flow

import (
	"path"
	"strings"

	"github.com/mchurichi/logdash/pkg/record"
)

// StackKey is the metadata key holding the call stack.
const StackKey = "call_stack"

// Node types.
const (
	TypeModule   = "module"
	TypeFunction = "function"
)

// Edge kinds.
const (
	EdgeBelongs = "belongs"
	EdgeCalls   = "calls"
)

// Message is a log line that passed through a function.
type Message struct {
	Message  string        `json:"message"`
	Level    string        `json:"level"`
	Metadata *record.Value `json:"metadata"`
}

// Node is a module or a function.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	// Module is the owning module node id; empty for modules.
	Module string `json:"module,omitempty"`
	// Calls counts stack entries that referenced the module.
	Calls    int       `json:"calls,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// Graph lists modules first, then functions. Within each group, and for
// edges, order is first-seen.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type frame struct {
	module   string
	function string
}

// Module names never contain a dot, so the two id forms cannot collide.
func (f frame) moduleID() string   { return "module:" + f.module }
func (f frame) functionID() string { return f.module + "." + f.function }

// ModuleName reduces a source path to its module name: the base name up to
// the first dot.
func ModuleName(file string) string {
	base := path.Base(strings.ReplaceAll(file, "\\", "/"))
	name, _, _ := strings.Cut(base, ".")
	return name
}

type builder struct {
	modules   []*Node
	functions []*Node
	byID      map[string]*Node
	edges     []Edge
	seenEdge  map[Edge]bool
}

// Build computes the graph for records, in the order given.
func Build(records []*record.Record) Graph {
	b := &builder{
		byID:     map[string]*Node{},
		seenEdge: map[Edge]bool{},
	}
	for _, r := range records {
		b.add(r, stack(r))
	}
	return b.graph()
}

// stack returns the leading well-formed frames of r's call stack.
func stack(r *record.Record) []frame {
	v, ok := r.MetadataField(StackKey)
	if !ok {
		return nil
	}
	items, ok := v.Array()
	if !ok {
		return nil
	}

	frames := make([]frame, 0, len(items))
	for _, item := range items {
		fileVal, ok := item.Get("file")
		if !ok {
			break
		}
		fnVal, ok := item.Get("function")
		if !ok {
			break
		}
		file, ok := fileVal.Str()
		if !ok {
			break
		}
		fn, ok := fnVal.Str()
		if !ok {
			break
		}
		frames = append(frames, frame{module: ModuleName(file), function: fn})
	}
	return frames
}

func (b *builder) add(r *record.Record, frames []frame) {
	for i, f := range frames {
		mod := b.node(f.moduleID(), f.module, TypeModule, "")
		mod.Calls++

		fn := b.node(f.functionID(), f.function, TypeFunction, mod.ID)
		fn.Messages = append(fn.Messages, Message{
			Message:  r.Message,
			Level:    r.Level,
			Metadata: r.Metadata,
		})

		b.edge(Edge{From: fn.ID, To: mod.ID, Kind: EdgeBelongs})
		if i+1 < len(frames) {
			b.edge(Edge{From: fn.ID, To: frames[i+1].functionID(), Kind: EdgeCalls})
		}
	}
}

func (b *builder) node(id, label, typ, module string) *Node {
	if n, ok := b.byID[id]; ok {
		return n
	}
	n := &Node{ID: id, Label: label, Type: typ, Module: module}
	b.byID[id] = n
	if typ == TypeModule {
		b.modules = append(b.modules, n)
	} else {
		b.functions = append(b.functions, n)
	}
	return n
}

func (b *builder) edge(e Edge) {
	if b.seenEdge[e] {
		return
	}
	b.seenEdge[e] = true
	b.edges = append(b.edges, e)
}

func (b *builder) graph() Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(b.modules)+len(b.functions)),
		Edges: b.edges,
	}
	for _, n := range b.modules {
		g.Nodes = append(g.Nodes, *n)
	}
	for _, n := range b.functions {
		g.Nodes = append(g.Nodes, *n)
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	return g
}
