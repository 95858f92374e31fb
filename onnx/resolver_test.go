package onnx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cmpShapes lets go-cmp look inside Shape when diffing TensorTypes.
var cmpShapes = cmp.AllowUnexported(Shape{})

// convNetGraph builds a small CNN: Conv -> LRN -> GlobalAveragePool ->
// Flatten. The nodes are deliberately listed in reverse order, so type
// resolution has to sort them first.
func convNetGraph(t *testing.T) *Graph {
	return &Graph{
		Name:         "convnet",
		OpsetVersion: 7,
		Inputs: []*ValueInfo{
			{Name: "image", Type: typeFor(t, "1,3,224,224")},
		},
		Initializers: []*ValueInfo{
			{Name: "conv_w", Type: typeFor(t, "64,3,7,7")},
		},
		Outputs: []*ValueInfo{
			{Name: "features"},
		},
		Nodes: []*Node{
			{OpType: "Flatten", Name: "flatten", Inputs: []string{"pooled"}, Outputs: []string{"features"}},
			{OpType: "GlobalAveragePool", Name: "gap", Inputs: []string{"lrn_out"}, Outputs: []string{"pooled"}},
			{OpType: "LRN", Name: "lrn", Inputs: []string{"conv_out"}, Outputs: []string{"lrn_out"},
				Attributes: []*Attribute{IntAttr("size", 5)}},
			{OpType: "Conv", Name: "conv", Inputs: []string{"image", "conv_w"}, Outputs: []string{"conv_out"},
				Attributes: []*Attribute{
					IntsAttr("strides", 2, 2),
					IntsAttr("pads", 3, 3, 3, 3),
				}},
		},
	}
}

func TestResolver(t *testing.T) {
	resolver := NewResolver(convNetGraph(t))
	require.NoError(t, resolver.Resolve())

	want := map[string]*TensorType{
		"image":    typeFor(t, "1,3,224,224"),
		"conv_w":   typeFor(t, "64,3,7,7"),
		"conv_out": typeFor(t, "1,64,112,112"),
		"lrn_out":  typeFor(t, "1,64,112,112"),
		"pooled":   typeFor(t, "1,64,1,1"),
		"features": typeFor(t, "1,64"),
	}
	for name, wantType := range want {
		got, found := resolver.Type(name)
		require.True(t, found, "value %q was not resolved", name)
		if diff := cmp.Diff(wantType, got, cmpShapes); diff != "" {
			t.Errorf("type of %q mismatch (-want +got):\n%s", name, diff)
		}
	}

	assert.Equal(t, SourceInput, resolver.Source("image"))
	assert.Equal(t, SourceInitializer, resolver.Source("conv_w"))
	assert.Equal(t, SourceInferred, resolver.Source("conv_out"))
	assert.Equal(t, SourceInferred, resolver.Source("features"))
	assert.Equal(t, SourceUnknown, resolver.Source("no_such_value"))
	_, found := resolver.Type("no_such_value")
	assert.False(t, found)

	// Resolve is idempotent.
	require.NoError(t, resolver.Resolve())
}

func TestResolverSymbolicBatch(t *testing.T) {
	graph := convNetGraph(t)
	graph.Inputs[0].Type = typeFor(t, "batch,3,224,224")
	resolver := NewResolver(graph)
	require.NoError(t, resolver.Resolve())

	// Copied axes keep the symbolic name; Flatten's product over the batch
	// axis degrades it to an anonymous unknown.
	got, found := resolver.Type("pooled")
	require.True(t, found)
	assert.Equal(t, "Float32[batch, 64, 1, 1]", got.String())

	got, found = resolver.Type("features")
	require.True(t, found)
	assert.Equal(t, "Float32[?, 64]", got.String())
}

func TestResolverSurfacesHardFailures(t *testing.T) {
	graph := convNetGraph(t)
	// Truncate pads on the Conv node; inference must reject it.
	graph.Nodes[3].Attributes[1] = IntsAttr("pads", 3, 3, 3)

	err := NewResolver(graph).Resolve()
	require.ErrorContains(t, err, "pads")
	require.ErrorContains(t, err, `"conv"`)
	require.ErrorContains(t, err, `graph "convnet"`)
}

func TestResolverSkipsUnknownOperators(t *testing.T) {
	graph := convNetGraph(t)
	graph.Nodes = append(graph.Nodes, &Node{
		OpType:  "Relu",
		Name:    "relu",
		Inputs:  []string{"features"},
		Outputs: []string{"activated"},
	})

	resolver := NewResolver(graph)
	require.NoError(t, resolver.Resolve())

	// Everything upstream still resolves; the unknown operator's output
	// simply stays untyped.
	_, found := resolver.Type("features")
	assert.True(t, found)
	_, found = resolver.Type("activated")
	assert.False(t, found)
	assert.Equal(t, SourceUnknown, resolver.Source("activated"))
}

func TestResolverAnnotationPriority(t *testing.T) {
	graph := convNetGraph(t)
	// A value-info annotation for a graph input must not override the input
	// declaration; an annotation for an intermediate value seeds it until
	// inference replaces it.
	graph.ValueInfos = []*ValueInfo{
		{Name: "image", Type: typeFor(t, "?,?,?,?")},
		{Name: "conv_out", Type: typeFor(t, "1,64,?,?")},
	}

	resolver := NewResolver(graph)
	assert.Equal(t, SourceInput, resolver.Source("image"))
	assert.Equal(t, SourceDeclared, resolver.Source("conv_out"))

	require.NoError(t, resolver.Resolve())
	got, _ := resolver.Type("conv_out")
	assert.Equal(t, "Float32[1, 64, 112, 112]", got.String())
	assert.Equal(t, SourceInferred, resolver.Source("conv_out"))

	got, _ = resolver.Type("image")
	assert.Equal(t, "Float32[1, 3, 224, 224]", got.String())
}

func TestResolverRejectsCycles(t *testing.T) {
	graph := &Graph{
		Name:         "cyclic",
		OpsetVersion: 7,
		Inputs: []*ValueInfo{
			{Name: "x", Type: typeFor(t, "2,3")},
		},
		Nodes: []*Node{
			{OpType: "Dropout", Name: "d0", Inputs: []string{"b"}, Outputs: []string{"a"}},
			{OpType: "Dropout", Name: "d1", Inputs: []string{"a"}, Outputs: []string{"b"}},
		},
	}
	err := NewResolver(graph).Resolve()
	require.ErrorContains(t, err, "cycle")
}

func TestResolverOmittedOptionalInputs(t *testing.T) {
	graph := &Graph{
		Name:         "optional",
		OpsetVersion: 7,
		Inputs: []*ValueInfo{
			{Name: "x", Type: &TensorType{DType: dtypes.Float16, Shape: MakeShape(1, 4, 8, 8)}},
		},
		Initializers: []*ValueInfo{
			{Name: "w", Type: &TensorType{DType: dtypes.Float16, Shape: MakeShape(8, 4, 3, 3)}},
		},
		Nodes: []*Node{
			// The empty third input name stands for the omitted bias and must
			// not block the dependency sort.
			{OpType: "Conv", Name: "conv", Inputs: []string{"x", "w", ""}, Outputs: []string{"y"}},
		},
	}
	resolver := NewResolver(graph)
	require.NoError(t, resolver.Resolve())
	got, found := resolver.Type("y")
	require.True(t, found)
	assert.Equal(t, dtypes.Float16, got.DType)
	assert.Equal(t, "[1, 8, 6, 6]", got.Shape.String())
}
