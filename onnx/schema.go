package onnx

import (
	"sort"

	"github.com/gomlx/exceptions"
)

// AttrSpec declares one operator attribute: its value type, whether a node
// must carry it, and the value assumed when it is absent. Per-axis defaults
// that depend on the input rank (all-1 strides, all-0 pads) have a nil
// Default and are expanded by the inference functions.
type AttrSpec struct {
	Name     string
	Doc      string
	Type     AttrType
	Required bool
	Default  *Attribute
}

// ParamSpec declares one operator input or output.
type ParamSpec struct {
	Name     string
	Doc      string
	TypeStr  string
	Optional bool
}

// TypeConstraint restricts the element types a type-string may bind to.
type TypeConstraint struct {
	TypeStr string
	Allowed []string
	Doc     string
}

// InferenceFunc computes the output types of a node from its inputs and
// attributes. It reports malformed nodes by panicking (converted to an
// error by Infer) and leaves output information unset when the inputs
// don't determine it.
type InferenceFunc func(ctx *InferenceContext)

// OpSchema is the declarative description of one operator version:
// documentation, attribute table, input/output contracts, type constraints
// and the shape inference function.
type OpSchema struct {
	OpType       string
	SinceVersion int64
	Doc          string

	Attrs           []AttrSpec
	Inputs          []ParamSpec
	Outputs         []ParamSpec
	TypeConstraints []TypeConstraint

	Infer InferenceFunc
}

// Attr returns the spec of the named attribute, or nil if the operator does
// not declare it.
func (s *OpSchema) Attr(name string) *AttrSpec {
	for i := range s.Attrs {
		if s.Attrs[i].Name == name {
			return &s.Attrs[i]
		}
	}
	return nil
}

// requiredOutputs returns how many leading outputs are non-optional.
func (s *OpSchema) requiredOutputs() int {
	n := 0
	for _, out := range s.Outputs {
		if !out.Optional {
			n++
		}
	}
	return n
}

// checkNode validates a node against the schema: attribute presence and
// types, and the number of outputs. It panics on violations; Infer converts
// the panic into an error.
func (s *OpSchema) checkNode(node *Node, numOutputs int) {
	for _, attr := range node.Attributes {
		spec := s.Attr(attr.Name)
		if spec == nil {
			exceptions.Panicf("%s has undeclared attribute %q", nodeToString(node), attr.Name)
		}
		// INTS attributes accept a single INT, same as mustGetIntsAttr.
		if attr.Type != spec.Type && !(spec.Type == AttrInts && attr.Type == AttrInt) {
			exceptions.Panicf("attribute %q of %s has type %s, want %s",
				attr.Name, nodeToString(node), attr.Type, spec.Type)
		}
	}
	for i := range s.Attrs {
		spec := &s.Attrs[i]
		if spec.Required && getNodeAttr(node, spec.Name, false) == nil {
			exceptions.Panicf("%s is missing required attribute %q", nodeToString(node), spec.Name)
		}
	}
	if numOutputs < s.requiredOutputs() || numOutputs > len(s.Outputs) {
		exceptions.Panicf("%s declares %d outputs, operator %s (opset %d) allows %d to %d",
			nodeToString(node), numOutputs, s.OpType, s.SinceVersion, s.requiredOutputs(), len(s.Outputs))
	}
}

// schemaRegistry maps operator type to its versions, sorted by descending
// SinceVersion so lookup can take the first match.
var schemaRegistry = map[string][]*OpSchema{}

// RegisterSchema adds an operator schema to the registry. It panics on a
// duplicate (opType, SinceVersion) pair; registration happens at init time.
func RegisterSchema(schema *OpSchema) {
	if schema.OpType == "" {
		exceptions.Panicf("cannot register operator schema without an OpType")
	}
	versions := schemaRegistry[schema.OpType]
	for _, existing := range versions {
		if existing.SinceVersion == schema.SinceVersion {
			exceptions.Panicf("operator %s version %d registered twice", schema.OpType, schema.SinceVersion)
		}
	}
	versions = append(versions, schema)
	sort.Slice(versions, func(i, j int) bool { return versions[i].SinceVersion > versions[j].SinceVersion })
	schemaRegistry[schema.OpType] = versions
}

// LookupSchema returns the schema for opType with the highest SinceVersion
// not above the requested opset version, or nil when there is none.
// A version <= 0 requests the latest registered schema.
func LookupSchema(opType string, version int64) *OpSchema {
	versions := schemaRegistry[opType]
	if len(versions) == 0 {
		return nil
	}
	if version <= 0 {
		return versions[0]
	}
	for _, schema := range versions {
		if schema.SinceVersion <= version {
			return schema
		}
	}
	return nil
}

// RegisteredOps returns the sorted list of operator types in the registry.
func RegisteredOps() []string {
	ops := make([]string, 0, len(schemaRegistry))
	for opType := range schemaRegistry {
		ops = append(ops, opType)
	}
	sort.Strings(ops)
	return ops
}
