package onnx

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/pkg/errors"
)

// Outcome classifies a successful inference call. A malformed node is the
// third case and is reported as an error instead: callers can tell "not
// enough information yet" apart from "the graph is broken".
type Outcome int

const (
	// OutcomeIncomplete - some or all output type information was left
	// unset, typically because input shapes were missing or the node uses
	// an unsupported attribute combination.
	OutcomeIncomplete Outcome = iota

	// OutcomeComplete - every output has a known element type and a fully
	// known shape.
	OutcomeComplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeIncomplete:
		return "incomplete"
	default:
		return "invalid"
	}
}

// InferenceContext is the view an InferenceFunc works against: the node's
// attributes, the (possibly unknown) input types, and one mutable output
// slot per declared output. A context lives for a single inference call.
type InferenceContext struct {
	node    *Node
	inputs  []*TensorType
	outputs []*TensorType
}

func newInferenceContext(node *Node, inputs []*TensorType, numOutputs int) *InferenceContext {
	return &InferenceContext{
		node:    node,
		inputs:  inputs,
		outputs: make([]*TensorType, numOutputs),
	}
}

// NumInputs returns the number of input slots, including unknown ones.
func (ctx *InferenceContext) NumInputs() int { return len(ctx.inputs) }

// Input returns the i-th input type, or nil when it is absent or unknown.
func (ctx *InferenceContext) Input(i int) *TensorType {
	if i < 0 || i >= len(ctx.inputs) {
		return nil
	}
	return ctx.inputs[i]
}

// NumOutputs returns the number of output slots.
func (ctx *InferenceContext) NumOutputs() int { return len(ctx.outputs) }

// Output returns the i-th output slot, allocating it on first use.
func (ctx *InferenceContext) Output(i int) *TensorType {
	if i < 0 || i >= len(ctx.outputs) {
		exceptions.Panicf("%s has no output #%d", nodeToString(ctx.node), i)
	}
	if ctx.outputs[i] == nil {
		ctx.outputs[i] = &TensorType{DType: dtypes.InvalidDType, Shape: UnknownShape()}
	}
	return ctx.outputs[i]
}

// hasNInputShapes reports whether the first n inputs all have a type with a
// known rank.
func (ctx *InferenceContext) hasNInputShapes(n int) bool {
	if n > len(ctx.inputs) {
		return false
	}
	for i := 0; i < n; i++ {
		if ctx.inputs[i] == nil || ctx.inputs[i].Shape.Rank() < 0 {
			return false
		}
	}
	return true
}

// propagateElemTypeFromInput copies the element type of an input to an
// output slot, leaving it unset when the input type is unknown.
func (ctx *InferenceContext) propagateElemTypeFromInput(inputIdx, outputIdx int) {
	in := ctx.Input(inputIdx)
	if in == nil || in.DType == dtypes.InvalidDType {
		return
	}
	ctx.Output(outputIdx).DType = in.DType
}

// outcome classifies the state of the output slots after inference ran.
func (ctx *InferenceContext) outcome() Outcome {
	for _, out := range ctx.outputs {
		if out == nil || out.DType == dtypes.InvalidDType || !out.Shape.FullyKnown() {
			return OutcomeIncomplete
		}
	}
	return OutcomeComplete
}

// InferenceResult holds the inferred output types of one node. Outputs has
// one entry per output slot; an entry may be nil (nothing inferred) or carry
// a type with some dimensions unknown.
type InferenceResult struct {
	Outputs []*TensorType
	Outcome Outcome
}

// Infer runs type and shape inference for a single node at the given opset
// version (<= 0 selects the latest schema).
//
// A nil error with Outcome == OutcomeIncomplete means the node is well
// formed but the inputs don't determine all output information, which is
// common while a graph is still under construction. An error means the node is
// malformed: wrong attribute shape, missing mandatory attribute, or an
// out-of-range value.
func Infer(node *Node, version int64, inputs ...*TensorType) (*InferenceResult, error) {
	schema := LookupSchema(node.OpType, version)
	if schema == nil {
		return nil, errors.Errorf("no schema registered for operator %q at opset version %d", node.OpType, version)
	}
	numOutputs := len(node.Outputs)
	if numOutputs == 0 {
		numOutputs = schema.requiredOutputs()
	}
	ctx := newInferenceContext(node, inputs, numOutputs)
	err := exceptions.TryCatch[error](func() {
		schema.checkNode(node, numOutputs)
		if schema.Infer != nil {
			schema.Infer(ctx)
		}
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "inferring types for %s", nodeToString(node))
	}
	return &InferenceResult{Outputs: ctx.outputs, Outcome: ctx.outcome()}, nil
}
