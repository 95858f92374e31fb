package onnx

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// TypeSource tracks where a resolved value type came from. It lets callers
// tell annotations already present in the graph apart from types this
// package computed.
type TypeSource int

const (
	// SourceUnknown - the value has no resolved type.
	SourceUnknown TypeSource = iota

	// SourceInput - declared on the graph inputs.
	SourceInput

	// SourceInitializer - declared on a weight or other constant.
	SourceInitializer

	// SourceDeclared - annotated in the graph's value infos or outputs.
	SourceDeclared

	// SourceInferred - computed by operator type inference.
	SourceInferred
)

// String returns a human-readable name for the source.
func (s TypeSource) String() string {
	switch s {
	case SourceInput:
		return "input"
	case SourceInitializer:
		return "initializer"
	case SourceDeclared:
		return "declared"
	case SourceInferred:
		return "inferred"
	default:
		return "unknown"
	}
}

// Resolver propagates tensor types through a Graph. It is seeded with the
// graph's declared types and fills in the rest by running operator type
// inference over the nodes in dependency order.
//
// Type resolution happens in priority order:
//  1. Inferred types (most accurate for the current graph).
//  2. Graph input declarations.
//  3. Initializer (weight) declarations.
//  4. Value-info and output annotations embedded in the graph.
type Resolver struct {
	graph *Graph

	types   map[string]*TensorType
	sources map[string]TypeSource

	// Whether type propagation has been run.
	resolved bool
}

// maxResolvePasses bounds the multi-pass propagation; each extra pass only
// helps when a node's inputs were resolved after the node was visited.
const maxResolvePasses = 10

// NewResolver creates a Resolver for the given graph and seeds it with the
// graph's declared value types.
func NewResolver(graph *Graph) *Resolver {
	r := &Resolver{
		graph:   graph,
		types:   make(map[string]*TensorType),
		sources: make(map[string]TypeSource),
	}
	// Later seeds never overwrite earlier ones, so the priority order here
	// matters: inputs, then initializers, then annotations.
	r.seed(graph.Inputs, SourceInput)
	r.seed(graph.Initializers, SourceInitializer)
	r.seed(graph.ValueInfos, SourceDeclared)
	r.seed(graph.Outputs, SourceDeclared)
	return r
}

func (r *Resolver) seed(values []*ValueInfo, source TypeSource) {
	for _, vi := range values {
		if vi.Name == "" || vi.Type == nil {
			continue
		}
		if _, found := r.types[vi.Name]; found {
			continue
		}
		r.types[vi.Name] = vi.Type.Clone()
		r.sources[vi.Name] = source
	}
}

// Type returns the resolved type for a named graph value.
func (r *Resolver) Type(name string) (*TensorType, bool) {
	t, found := r.types[name]
	return t, found
}

// Source returns where the resolved type of a value came from, or
// SourceUnknown for unresolved values.
func (r *Resolver) Source(name string) TypeSource {
	return r.sources[name]
}

// Resolve propagates types through the graph. Nodes whose operator has no
// registered schema, or whose inputs stay unknown, are skipped; a malformed
// node aborts resolution with an error carrying the node context.
//
// Resolve is idempotent: after the first successful run it is a no-op.
func (r *Resolver) Resolve() error {
	if r.resolved {
		return nil
	}
	err := exceptions.TryCatch[error](func() { r.resolve() })
	if err != nil {
		return errors.WithMessagef(err, "resolving types of graph %q", r.graph.Name)
	}
	r.resolved = true
	return nil
}

func (r *Resolver) resolve() {
	nodes := r.sortedNodes()

	// Multi-pass: a node may depend on values that only resolve in a later
	// pass (e.g. annotations that refine an earlier skip). Stop when passes
	// stop making progress.
	consecutiveNonProgress := 0
	for pass := 0; pass < maxResolvePasses; pass++ {
		initialCount := len(r.types)
		for _, node := range nodes {
			r.resolveNode(node)
		}
		progress := len(r.types) - initialCount
		klog.V(2).Infof("type resolution of graph %q: pass %d resolved %d new values (%d total)",
			r.graph.Name, pass, progress, len(r.types))
		if progress == 0 {
			consecutiveNonProgress++
			if consecutiveNonProgress >= 2 {
				break
			}
		} else {
			consecutiveNonProgress = 0
		}
	}
}

// resolveNode runs type inference for a single node and records any output
// types it determines. Hard inference failures panic and surface through
// Resolve.
func (r *Resolver) resolveNode(node *Node) {
	if node == nil || len(node.Outputs) == 0 {
		return
	}
	if r.sources[node.Outputs[0]] == SourceInferred {
		return
	}
	schema := LookupSchema(node.OpType, r.graph.OpsetVersion)
	if schema == nil {
		klog.V(3).Infof("no schema for operator %q, leaving %q unresolved", node.OpType, node.Outputs[0])
		return
	}

	inputs := sliceMap(node.Inputs, func(name string) *TensorType { return r.types[name] })
	result, err := Infer(node, r.graph.OpsetVersion, inputs...)
	if err != nil {
		panic(err)
	}

	for i, name := range node.Outputs {
		if name == "" || i >= len(result.Outputs) {
			continue
		}
		out := result.Outputs[i]
		if out == nil || out.DType == dtypes.InvalidDType || out.Shape.Rank() < 0 {
			continue
		}
		r.types[name] = out
		r.sources[name] = SourceInferred
	}
}

// sortedNodes returns the graph nodes in dependency order, so every node is
// visited after the nodes producing its inputs. Values declared as graph
// inputs or initializers count as available from the start; empty input
// names (omitted optional inputs) are ignored.
func (r *Resolver) sortedNodes() []*Node {
	available := sets.Make[string]()
	for _, vi := range r.graph.Inputs {
		available.Insert(vi.Name)
	}
	for _, vi := range r.graph.Initializers {
		available.Insert(vi.Name)
	}

	ready := func(node *Node) bool {
		for _, name := range node.Inputs {
			if name == "" {
				continue
			}
			if !available.Has(name) {
				return false
			}
		}
		return true
	}

	sorted := make([]*Node, 0, len(r.graph.Nodes))
	remaining := append([]*Node(nil), r.graph.Nodes...)
	for len(remaining) > 0 {
		progressed := false
		unsorted := remaining[:0]
		for _, node := range remaining {
			if !ready(node) {
				unsorted = append(unsorted, node)
				continue
			}
			sorted = append(sorted, node)
			for _, output := range node.Outputs {
				available.Insert(output)
			}
			progressed = true
		}
		remaining = unsorted
		if !progressed {
			exceptions.Panicf("sorting operations graph failed: %d of %d nodes are part of a cycle or consume values nothing produces (first: %s)",
				len(remaining), len(r.graph.Nodes), nodeToString(remaining[0]))
		}
	}
	return sorted
}
