package onnx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/pkg/errors"
)

// DimUnknown is the Value of a dimension whose extent is not statically known.
const DimUnknown = int64(-1)

// Dim is a single tensor dimension: a static extent (Value >= 0), a named
// symbolic parameter (Param != ""), or fully unknown. Symbolic and unknown
// dimensions are copied verbatim by inference, never guessed.
type Dim struct {
	Value int64
	Param string
}

// KnownDim returns a dimension with a static extent.
func KnownDim(value int64) Dim { return Dim{Value: value} }

// SymbolicDim returns a dimension identified by a parameter name, e.g. "batch".
func SymbolicDim(param string) Dim { return Dim{Value: DimUnknown, Param: param} }

// UnknownDim returns an anonymous unknown dimension.
func UnknownDim() Dim { return Dim{Value: DimUnknown} }

// Known reports whether the dimension has a static extent.
func (d Dim) Known() bool { return d.Value >= 0 }

func (d Dim) String() string {
	if d.Known() {
		return strconv.FormatInt(d.Value, 10)
	}
	if d.Param != "" {
		return d.Param
	}
	return "?"
}

// Shape is a possibly partially-known tensor shape.
//
// The zero value represents a shape of unknown rank. Once the rank is known
// it never changes; individual dimensions may still be unknown or symbolic.
type Shape struct {
	dims []Dim
}

// MakeShape returns a shape with the given extents. A value of -1 stands for
// an unknown dimension.
func MakeShape(dims ...int64) Shape {
	s := Shape{dims: make([]Dim, len(dims))}
	for i, v := range dims {
		if v < 0 {
			s.dims[i] = UnknownDim()
		} else {
			s.dims[i] = KnownDim(v)
		}
	}
	return s
}

// ShapeOf returns a shape with the given dimensions.
func ShapeOf(dims ...Dim) Shape {
	s := Shape{dims: make([]Dim, len(dims))}
	copy(s.dims, dims)
	return s
}

// ScalarShape returns the rank-0 shape.
func ScalarShape() Shape { return Shape{dims: make([]Dim, 0)} }

// UnknownShape returns a shape whose rank is not known.
func UnknownShape() Shape { return Shape{} }

// Rank returns the number of dimensions, or -1 if the rank is unknown.
func (s Shape) Rank() int {
	if s.dims == nil {
		return -1
	}
	return len(s.dims)
}

// Dim returns the i-th dimension. Out-of-range indices (including any index
// on an unknown-rank shape) yield an unknown dimension.
func (s Shape) Dim(i int) Dim {
	if i < 0 || i >= len(s.dims) {
		return UnknownDim()
	}
	return s.dims[i]
}

// Dims returns a copy of the dimensions, or nil if the rank is unknown.
func (s Shape) Dims() []Dim {
	if s.dims == nil {
		return nil
	}
	out := make([]Dim, len(s.dims))
	copy(out, s.dims)
	return out
}

// FullyKnown reports whether the rank and every dimension are static.
func (s Shape) FullyKnown() bool {
	if s.dims == nil {
		return false
	}
	for _, d := range s.dims {
		if !d.Known() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	if s.dims == nil {
		return Shape{}
	}
	return ShapeOf(s.dims...)
}

// appendDim grows the shape by one trailing dimension. Used while inference
// builds an output shape dimension by dimension.
func (s *Shape) appendDim(d Dim) {
	if s.dims == nil {
		s.dims = make([]Dim, 0, 4)
	}
	s.dims = append(s.dims, d)
}

func (s Shape) String() string {
	if s.dims == nil {
		return "[...]"
	}
	parts := sliceMap(s.dims, func(d Dim) string { return d.String() })
	return "[" + strings.Join(parts, ", ") + "]"
}

// ParseShape parses a comma-separated shape string, for example "1,3,224,224".
// A dimension is a non-negative integer, "?" (or "-1") for unknown, or an
// identifier naming a symbolic parameter, e.g. "batch,3,224,224".
func ParseShape(raw string) (Shape, error) {
	parts := strings.Split(raw, ",")
	dims := make([]Dim, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Shape{}, errors.Errorf("empty dimension in shape %q", raw)
		}
		if part == "?" || part == "-1" {
			dims = append(dims, UnknownDim())
			continue
		}
		if v, err := strconv.ParseInt(part, 10, 64); err == nil {
			if v < 0 {
				return Shape{}, errors.Errorf("negative dimension %d in shape %q", v, raw)
			}
			dims = append(dims, KnownDim(v))
			continue
		}
		dims = append(dims, SymbolicDim(part))
	}
	return ShapeOf(dims...), nil
}

// TensorType describes a tensor value: its element type and its possibly
// partially-known shape. A nil *TensorType stands for a value whose type is
// not known at all.
type TensorType struct {
	DType dtypes.DType
	Shape Shape
}

// TypeOf returns a TensorType with the given element type and extents
// (-1 for unknown dimensions).
func TypeOf(dtype dtypes.DType, dims ...int64) *TensorType {
	return &TensorType{DType: dtype, Shape: MakeShape(dims...)}
}

// Clone returns a deep copy of the type.
func (t *TensorType) Clone() *TensorType {
	if t == nil {
		return nil
	}
	return &TensorType{DType: t.DType, Shape: t.Shape.Clone()}
}

func (t *TensorType) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s%s", t.DType, t.Shape)
}
