package onnx

import (
	"github.com/gomlx/exceptions"
)

// This file implements the shape inference routines shared by the NN
// operator schemas. Each routine follows the same protocol: element type is
// propagated first, a plain return leaves the remaining output information
// unset (insufficient input shapes, unsupported attribute combination), and
// a panic reports a malformed node.

// convPoolShapeInference handles the sliding-window operators: Conv and the
// pooling family. useDilation is set only for Conv; requireKernelShape is
// set for the pooling operators, which must carry kernel_shape as an
// attribute instead of reading it off a weight tensor.
//
// Per spatial axis:
//
//	output = floor((input + padBegin + padEnd - (kernel-1)*dilation - 1) / stride) + 1
func convPoolShapeInference(ctx *InferenceContext, useDilation, requireKernelShape bool) {
	ctx.propagateElemTypeFromInput(0, 0)

	if !ctx.hasNInputShapes(1) {
		return
	}
	// When kernel_shape comes from the weight tensor we also need the
	// second input shape.
	if !requireKernelShape && !ctx.hasNInputShapes(2) {
		return
	}

	// Legacy implicit padding; output extents depend on the chosen scheme.
	if hasNodeAttr(ctx.node, "auto_pad") {
		return
	}

	inputShape := ctx.Input(0).Shape
	if inputShape.Rank() < 2 {
		exceptions.Panicf("input tensor must have at least 2 dimensions, got rank %d", inputShape.Rank())
	}
	// First axis is the batch, second the channels.
	spatialRank := inputShape.Rank() - 2

	var dilations []int64
	if useDilation && hasNodeAttr(ctx.node, "dilations") {
		dilations = mustGetIntsAttr(ctx.node, "dilations")
		if len(dilations) != spatialRank {
			exceptions.Panicf("attribute dilations has incorrect size %d, want %d", len(dilations), spatialRank)
		}
	} else {
		dilations = repeatInt64(1, spatialRank)
	}

	if group := getIntAttrOr(ctx.node, "group", 1); group != 1 {
		// Grouped convolutions are not handled.
		return
	}

	var pads []int64
	if hasNodeAttr(ctx.node, "pads") {
		pads = mustGetIntsAttr(ctx.node, "pads")
		if len(pads) != 2*spatialRank {
			exceptions.Panicf("attribute pads has incorrect size %d, want %d", len(pads), 2*spatialRank)
		}
	} else {
		pads = repeatInt64(0, 2*spatialRank)
	}

	var strides []int64
	if hasNodeAttr(ctx.node, "strides") {
		strides = mustGetIntsAttr(ctx.node, "strides")
		if len(strides) != spatialRank {
			exceptions.Panicf("attribute strides has incorrect size %d, want %d", len(strides), spatialRank)
		}
	} else {
		strides = repeatInt64(1, spatialRank)
	}

	var kernelShape []int64
	if hasNodeAttr(ctx.node, "kernel_shape") {
		kernelShape = mustGetIntsAttr(ctx.node, "kernel_shape")
		if len(kernelShape) != spatialRank {
			exceptions.Panicf("attribute kernel_shape has incorrect size %d, want %d", len(kernelShape), spatialRank)
		}
	} else if requireKernelShape {
		exceptions.Panicf("attribute kernel_shape must be specified")
	} else {
		weightShape := ctx.Input(1).Shape
		for i := 2; i < weightShape.Rank(); i++ {
			d := weightShape.Dim(i)
			if !d.Known() {
				return
			}
			kernelShape = append(kernelShape, d.Value)
		}
	}

	out := ctx.Output(0)
	out.Shape = ScalarShape()
	if requireKernelShape {
		// Batch and channel axes carry over from the input.
		out.Shape.appendDim(inputShape.Dim(0))
		out.Shape.appendDim(inputShape.Dim(1))
	} else {
		out.Shape.appendDim(inputShape.Dim(0))
		weightShape := ctx.Input(1).Shape
		if weightShape.Rank() < 1 {
			exceptions.Panicf("second input tensor has wrong dimension")
		}
		// Output channels come from the leading weight axis.
		out.Shape.appendDim(weightShape.Dim(0))
	}

	for i, kernel := range kernelShape {
		d := inputShape.Dim(2 + i)
		if !d.Known() {
			out.Shape.appendDim(UnknownDim())
			continue
		}
		// How big the input is, including padding.
		effectiveInput := d.Value + pads[i] + pads[i+len(kernelShape)]
		// Accounting for dilation, how big the kernel is along this axis.
		effectiveKernel := (kernel-1)*dilations[i] + 1
		// How many times the kernel can move from its initial position,
		// plus the initial position itself.
		out.Shape.appendDim(KnownDim((effectiveInput-effectiveKernel)/strides[i] + 1))
	}
}

// convTransposeShapeInference handles ConvTranspose. Unlike the forward
// sliding-window operators, a malformed attribute here leaves the shape
// unset rather than failing: the formula is inverted and the operator has
// two modes, an explicit output_shape attribute or
//
//	output = stride*(input-1) + outputPadding + kernel - padBegin - padEnd
func convTransposeShapeInference(ctx *InferenceContext) {
	ctx.propagateElemTypeFromInput(0, 0)

	if !ctx.hasNInputShapes(2) {
		return
	}
	if hasNodeAttr(ctx.node, "auto_pad") {
		return
	}

	inputShape := ctx.Input(0).Shape
	if inputShape.Rank() < 2 {
		return
	}
	spatialRank := inputShape.Rank() - 2

	if group := getIntAttrOr(ctx.node, "group", 1); group != 1 {
		return
	}
	if hasNodeAttr(ctx.node, "dilations") {
		// Dilated transpose convolutions are not handled.
		return
	}

	var pads []int64
	if hasNodeAttr(ctx.node, "pads") {
		pads = mustGetIntsAttr(ctx.node, "pads")
		if len(pads) != 2*spatialRank {
			return
		}
	} else {
		pads = repeatInt64(0, 2*spatialRank)
	}

	var strides []int64
	if hasNodeAttr(ctx.node, "strides") {
		strides = mustGetIntsAttr(ctx.node, "strides")
		if len(strides) != spatialRank {
			return
		}
	} else {
		strides = repeatInt64(1, spatialRank)
	}

	weightShape := ctx.Input(1).Shape
	var kernelShape []int64
	if hasNodeAttr(ctx.node, "kernel_shape") {
		kernelShape = mustGetIntsAttr(ctx.node, "kernel_shape")
		if len(kernelShape) != spatialRank {
			return
		}
	} else {
		for i := 2; i < weightShape.Rank(); i++ {
			d := weightShape.Dim(i)
			if !d.Known() {
				return
			}
			kernelShape = append(kernelShape, d.Value)
		}
	}

	var outputShape []int64
	if hasNodeAttr(ctx.node, "output_shape") {
		outputShape = mustGetIntsAttr(ctx.node, "output_shape")
		if len(outputShape) != spatialRank {
			return
		}
	}

	var outputPadding []int64
	if hasNodeAttr(ctx.node, "output_padding") {
		outputPadding = mustGetIntsAttr(ctx.node, "output_padding")
		if len(outputPadding) != spatialRank { // Added only to one side.
			return
		}
	} else {
		outputPadding = repeatInt64(0, spatialRank)
	}

	out := ctx.Output(0)
	out.Shape = ScalarShape()
	out.Shape.appendDim(inputShape.Dim(0))
	// Output channels are the second axis of the weight tensor.
	out.Shape.appendDim(weightShape.Dim(1))

	if len(outputShape) > 0 {
		for i, v := range outputShape {
			// A transposed convolution can only grow the spatial extent.
			if d := inputShape.Dim(2 + i); d.Known() && v < d.Value {
				exceptions.Panicf("attribute output_shape value %d at spatial axis %d is smaller than the input extent %d",
					v, i, d.Value)
			}
			out.Shape.appendDim(KnownDim(v))
		}
		// The explicit output shape wins; no formula is applied.
		return
	}

	for i, kernel := range kernelShape {
		d := inputShape.Dim(2 + i)
		if !d.Known() {
			out.Shape.appendDim(UnknownDim())
			continue
		}
		v := strides[i]*(d.Value-1) + outputPadding[i] + kernel - pads[i] - pads[i+len(kernelShape)]
		out.Shape.appendDim(KnownDim(v))
	}
}

// roiPoolShapeInference handles MaxRoiPool: the output is
// (numRois, channels, pooledShape...), where numRois comes from the RoI list
// and channels from the input, both copied verbatim.
func roiPoolShapeInference(ctx *InferenceContext) {
	ctx.propagateElemTypeFromInput(0, 0)

	if !ctx.hasNInputShapes(2) {
		return
	}

	inputShape := ctx.Input(0).Shape
	roisShape := ctx.Input(1).Shape
	if inputShape.Rank() < 2 {
		exceptions.Panicf("input tensor must have at least 2 dimensions, got rank %d", inputShape.Rank())
	}
	if roisShape.Rank() != 2 {
		exceptions.Panicf("RoIs tensor must have 2 dimensions, got rank %d", roisShape.Rank())
	}
	spatialRank := inputShape.Rank() - 2

	if !hasNodeAttr(ctx.node, "pooled_shape") {
		exceptions.Panicf("attribute pooled_shape must be specified")
	}
	pooledShape := mustGetIntsAttr(ctx.node, "pooled_shape")
	if len(pooledShape) != spatialRank {
		exceptions.Panicf("attribute pooled_shape has incorrect length %d, want %d", len(pooledShape), spatialRank)
	}

	out := ctx.Output(0)
	out.Shape = ScalarShape()
	out.Shape.appendDim(roisShape.Dim(0))
	out.Shape.appendDim(inputShape.Dim(1))
	for _, v := range pooledShape {
		out.Shape.appendDim(KnownDim(v))
	}
}

// globalPoolShapeInference handles the GlobalPool family: every spatial axis
// collapses to extent 1, regardless of whether its input extent is known.
func globalPoolShapeInference(ctx *InferenceContext) {
	ctx.propagateElemTypeFromInput(0, 0)

	if !ctx.hasNInputShapes(1) {
		return
	}
	inputShape := ctx.Input(0).Shape
	if inputShape.Rank() < 2 {
		return
	}

	out := ctx.Output(0)
	out.Shape = ScalarShape()
	out.Shape.appendDim(inputShape.Dim(0))
	out.Shape.appendDim(inputShape.Dim(1))
	for i := 2; i < inputShape.Rank(); i++ {
		out.Shape.appendDim(KnownDim(1))
	}
}

// propagateShapeAndTypeFromFirstInput copies type and shape of the first
// input to the first output. Used by the normalization operators, Dropout
// and LRN, whose outputs mirror their input.
func propagateShapeAndTypeFromFirstInput(ctx *InferenceContext) {
	ctx.propagateElemTypeFromInput(0, 0)

	in := ctx.Input(0)
	if in == nil || in.Shape.Rank() < 0 {
		return
	}
	ctx.Output(0).Shape = in.Shape.Clone()
}

// flattenShapeInference handles Flatten: the output is always rank 2, the
// products of the input extents on either side of axis. An unknown factor
// makes the whole product unknown.
func flattenShapeInference(ctx *InferenceContext) {
	ctx.propagateElemTypeFromInput(0, 0)

	if !ctx.hasNInputShapes(1) {
		return
	}
	inputShape := ctx.Input(0).Shape
	rank := inputShape.Rank()
	axis := getIntAttrOr(ctx.node, "axis", 1)
	if axis > int64(rank) || axis < 0 {
		exceptions.Panicf("invalid value (%d) for attribute axis, must be in [0, %d]", axis, rank)
	}

	out := ctx.Output(0)
	out.Shape = ShapeOf(
		multiplyDims(inputShape, 0, int(axis)),
		multiplyDims(inputShape, int(axis), rank),
	)
}

// multiplyDims returns the product of the dimensions in [lo, hi). Any
// unknown factor makes the product unknown.
func multiplyDims(s Shape, lo, hi int) Dim {
	product := int64(1)
	for i := lo; i < hi; i++ {
		d := s.Dim(i)
		if !d.Known() {
			return UnknownDim()
		}
		product *= d.Value
	}
	return KnownDim(product)
}
