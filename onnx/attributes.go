package onnx

import (
	"github.com/gomlx/exceptions"
)

// AttrType enumerates the attribute value types used by the NN operators.
type AttrType int

const (
	AttrUndefined AttrType = iota
	AttrInt
	AttrFloat
	AttrString
	AttrInts
)

func (t AttrType) String() string {
	switch t {
	case AttrInt:
		return "INT"
	case AttrFloat:
		return "FLOAT"
	case AttrString:
		return "STRING"
	case AttrInts:
		return "INTS"
	default:
		return "UNDEFINED"
	}
}

// Attribute is one node attribute: a name and a value tagged by Type.
// Only the field selected by Type is meaningful.
type Attribute struct {
	Name string
	Type AttrType

	I    int64
	F    float32
	S    string
	Ints []int64
}

// IntAttr returns an INT attribute.
func IntAttr(name string, value int64) *Attribute {
	return &Attribute{Name: name, Type: AttrInt, I: value}
}

// FloatAttr returns a FLOAT attribute.
func FloatAttr(name string, value float32) *Attribute {
	return &Attribute{Name: name, Type: AttrFloat, F: value}
}

// StringAttr returns a STRING attribute.
func StringAttr(name, value string) *Attribute {
	return &Attribute{Name: name, Type: AttrString, S: value}
}

// IntsAttr returns an INTS attribute.
func IntsAttr(name string, values ...int64) *Attribute {
	ints := make([]int64, len(values))
	copy(ints, values)
	return &Attribute{Name: name, Type: AttrInts, Ints: ints}
}

// getNodeAttr returns the given node attribute. If required is true, it will panic with a message about
// the missing attribute.
func getNodeAttr(node *Node, name string, required bool) *Attribute {
	for _, attr := range node.Attributes {
		if attr.Name == name {
			return attr
		}
	}
	if required {
		exceptions.Panicf("%s is missing required attribute %q", nodeToString(node), name)
	}
	return nil
}

// hasNodeAttr reports whether the node carries the named attribute at all.
func hasNodeAttr(node *Node, name string) bool {
	return getNodeAttr(node, name, false) != nil
}

func assertNodeAttrType(node *Node, attr *Attribute, attrType AttrType) {
	if attr.Type != attrType {
		exceptions.Panicf("attribute %q of %s has type %s, want %s", attr.Name, nodeToString(node), attr.Type, attrType)
	}
}

// mustGetIntsAttr gets a list of integers attribute for node.
// It panics with an error message if the attribute is not present or if it is of the wrong type.
func mustGetIntsAttr(node *Node, attrName string) []int64 {
	attr := getNodeAttr(node, attrName, true)
	if attr.Type == AttrInt {
		return []int64{attr.I}
	}
	assertNodeAttrType(node, attr, AttrInts)
	return attr.Ints
}

// getIntAttrOr gets an integer attribute for node if present or return the given defaultValue.
// It panics with an error message if the attribute is present but is of the wrong type.
func getIntAttrOr(node *Node, attrName string, defaultValue int64) int64 {
	attr := getNodeAttr(node, attrName, false)
	if attr == nil {
		return defaultValue
	}
	assertNodeAttrType(node, attr, AttrInt)
	return attr.I
}

// repeatInt64 returns a slice of n copies of value: the expansion of a
// per-axis attribute default.
func repeatInt64(value int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = value
	}
	return out
}
