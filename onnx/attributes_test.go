package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttrAccessors(t *testing.T) {
	node := &Node{
		OpType:  "Conv",
		Name:    "conv0",
		Outputs: []string{"y"},
		Attributes: []*Attribute{
			IntsAttr("kernel_shape", 3, 3),
			IntAttr("group", 2),
			StringAttr("auto_pad", "VALID"),
		},
	}

	assert.True(t, hasNodeAttr(node, "group"))
	assert.False(t, hasNodeAttr(node, "pads"))

	assert.Equal(t, []int64{3, 3}, mustGetIntsAttr(node, "kernel_shape"))
	// A single INT is accepted where INTS is expected.
	assert.Equal(t, []int64{2}, mustGetIntsAttr(node, "group"))
	assert.Panics(t, func() { mustGetIntsAttr(node, "auto_pad") })
	assert.Panics(t, func() { mustGetIntsAttr(node, "pads") })

	assert.Equal(t, int64(2), getIntAttrOr(node, "group", 1))
	assert.Equal(t, int64(1), getIntAttrOr(node, "missing", 1))
	assert.Panics(t, func() { getIntAttrOr(node, "auto_pad", 0) })
}

func TestAttrTypeString(t *testing.T) {
	assert.Equal(t, "INT", AttrInt.String())
	assert.Equal(t, "FLOAT", AttrFloat.String())
	assert.Equal(t, "STRING", AttrString.String())
	assert.Equal(t, "INTS", AttrInts.String())
	assert.Equal(t, "UNDEFINED", AttrUndefined.String())
}

func TestRepeatInt64(t *testing.T) {
	assert.Equal(t, []int64{1, 1, 1}, repeatInt64(1, 3))
	assert.Empty(t, repeatInt64(7, 0))
}
