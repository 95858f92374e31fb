// Package onnx declares operator schemas for the neural-network operator
// family of the IR (convolution, pooling, normalization, dropout, flatten,
// local response normalization) and statically infers output tensor types
// from input types and node attributes, without executing anything.
//
//   - OpSchema / RegisterSchema / LookupSchema: the versioned operator
//     schema registry with declarative attribute tables.
//   - Infer: runs shape and element-type inference for a single node.
//   - Resolver: propagates types through a whole Graph, node by node.
//
// Shapes may be partially known: each dimension is either a static extent,
// a named symbolic parameter, or unknown. Inference is best-effort: when
// the inputs don't carry enough information the affected output dimensions
// are simply left unknown, while a malformed node is reported as an error.
package onnx

import (
	"fmt"
	"strings"
)

// Node is one operator invocation in a computation graph: the operator
// type, the names of the values it consumes and produces, and its
// attributes. An empty input name marks an omitted optional input.
type Node struct {
	OpType     string
	Name       string
	Inputs     []string
	Outputs    []string
	Attributes []*Attribute
}

func nodeToString(node *Node) string {
	if node == nil {
		return "Node(nil)"
	}
	return fmt.Sprintf("%s(name=%q, inputs=[%s], outputs=[%s])",
		node.OpType, node.Name,
		strings.Join(node.Inputs, ", "), strings.Join(node.Outputs, ", "))
}

// ValueInfo declares the type of a named graph value. Type may be nil when
// the graph carries the name but no type annotation.
type ValueInfo struct {
	Name string
	Type *TensorType
}

// Graph is a computation graph over named values. Nodes may be listed in
// any order; Resolver sorts them topologically before propagating types.
type Graph struct {
	Name         string
	OpsetVersion int64

	// Inputs and Outputs declare the graph boundary; ValueInfos annotate
	// intermediate values; Initializers are weights and other constants
	// whose types are always known.
	Inputs       []*ValueInfo
	Outputs      []*ValueInfo
	ValueInfos   []*ValueInfo
	Initializers []*ValueInfo

	Nodes []*Node
}

// sliceMap executes the given function sequentially for every element on in, and returns a mapped slice.
func sliceMap[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}
