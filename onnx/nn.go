package onnx

// This file declares the schemas of the NN operator family. Attribute
// tables are plain data: name, type, required flag and default. Defaults
// whose length depends on the input rank (strides, pads, dilations) are
// expanded inside the inference routines instead.

const (
	padsDoc = "Padding at the beginning and end of each spatial axis, as " +
		"[x1_begin, x2_begin, ..., x1_end, x2_end, ...]. Cannot be combined " +
		"with auto_pad. Defaults to 0 on every side."
	autoPadDoc = "Legacy implicit padding scheme: SAME_UPPER, SAME_LOWER or " +
		"VALID. Deprecated; use explicit pads instead."
	kernelShapeDoc = "The size of the kernel along each spatial axis."
	stridesDoc     = "Stride along each spatial axis. Defaults to 1 on every axis."
	dilationsDoc   = "Dilation along each axis of the filter. Defaults to 1 on every axis."
	groupDoc       = "Number of groups the input and output channels are divided into."
	nchwInputDoc   = "Input data tensor shaped (N x C x D1 x ... x Dn): batch, " +
		"channels, then the spatial axes (H x W for images)."
)

// Attribute specs shared by the sliding-window operators.
var (
	autoPadAttr = AttrSpec{Name: "auto_pad", Doc: autoPadDoc, Type: AttrString,
		Default: StringAttr("auto_pad", "NOTSET")}
	padsAttr      = AttrSpec{Name: "pads", Doc: padsDoc, Type: AttrInts}
	stridesAttr   = AttrSpec{Name: "strides", Doc: stridesDoc, Type: AttrInts}
	dilationsAttr = AttrSpec{Name: "dilations", Doc: dilationsDoc, Type: AttrInts}
	groupAttr     = AttrSpec{Name: "group", Doc: groupDoc, Type: AttrInt,
		Default: IntAttr("group", 1)}
	lpPAttr = AttrSpec{Name: "p", Doc: "Order of the Lp norm used to pool.",
		Type: AttrInt, Default: IntAttr("p", 2)}
)

// floatTensorTypes is the "T" constraint shared by all NN operators.
var floatTensorTypes = TypeConstraint{
	TypeStr: "T",
	Allowed: []string{"tensor(float16)", "tensor(float)", "tensor(double)"},
	Doc:     "Constrain input and output types to float tensors.",
}

// poolSchema builds the schema shared by the explicit-kernel pooling
// operators (AveragePool, MaxPool, LpPool), which differ only in their
// documentation and extra attributes.
func poolSchema(opType string, sinceVersion int64, doc string, extraAttrs ...AttrSpec) *OpSchema {
	attrs := []AttrSpec{
		{Name: "kernel_shape", Doc: kernelShapeDoc, Type: AttrInts, Required: true},
		stridesAttr,
		autoPadAttr,
		padsAttr,
	}
	attrs = append(attrs, extraAttrs...)
	return &OpSchema{
		OpType:       opType,
		SinceVersion: sinceVersion,
		Doc:          doc,
		Attrs:        attrs,
		Inputs: []ParamSpec{
			{Name: "X", Doc: nchwInputDoc, TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "Y", Doc: "Pooled output tensor; spatial extents follow from kernel, stride and pads.", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer: func(ctx *InferenceContext) {
			convPoolShapeInference(ctx, false, true)
		},
	}
}

// globalPoolSchema builds the schema shared by the GlobalPool operators.
func globalPoolSchema(opType, doc string, sinceVersion int64, extraAttrs ...AttrSpec) *OpSchema {
	return &OpSchema{
		OpType:       opType,
		SinceVersion: sinceVersion,
		Doc:          doc,
		Attrs:        extraAttrs,
		Inputs: []ParamSpec{
			{Name: "X", Doc: nchwInputDoc, TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "Y", Doc: "Pooled output tensor shaped (N x C x 1 x ... x 1).", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           globalPoolShapeInference,
	}
}

func init() {
	RegisterSchema(poolSchema("AveragePool", 1,
		"Applies average pooling over windows of the input tensor, "+
			"downsampling it by the kernel, stride and pad sizes. Each window "+
			"average excludes padding."))
	RegisterSchema(poolSchema("AveragePool", 7,
		"Applies average pooling over windows of the input tensor, "+
			"downsampling it by the kernel, stride and pad sizes. Padding is "+
			"excluded from each window average unless count_include_pad is set.",
		AttrSpec{Name: "count_include_pad",
			Doc:     "Include pad pixels when averaging values at the edges.",
			Type:    AttrInt,
			Default: IntAttr("count_include_pad", 0)}))
	RegisterSchema(poolSchema("MaxPool", 1,
		"Applies max pooling over windows of the input tensor, downsampling "+
			"it by the kernel, stride and pad sizes. Padding never contributes "+
			"to the maximum."))
	RegisterSchema(poolSchema("LpPool", 2,
		"Applies Lp-norm pooling over windows of the input tensor, "+
			"downsampling it by the kernel, stride and pad sizes.",
		lpPAttr))

	RegisterSchema(&OpSchema{
		OpType:       "MaxRoiPool",
		SinceVersion: 1,
		Doc: "Applies max pooling across each region of interest of the input, " +
			"producing a tensor shaped (num_rois, channels, pooled_shape[0], pooled_shape[1]).",
		Attrs: []AttrSpec{
			{Name: "pooled_shape", Doc: "RoI pool output extents (height, width).",
				Type: AttrInts, Required: true},
			{Name: "spatial_scale",
				Doc:     "Multiplicative factor translating RoI coordinates to the pooling scale.",
				Type:    AttrFloat,
				Default: FloatAttr("spatial_scale", 1.0)},
		},
		Inputs: []ParamSpec{
			{Name: "X", Doc: nchwInputDoc, TypeStr: "T"},
			{Name: "rois",
				Doc:     "Regions of interest to pool over: a 2-D tensor shaped (num_rois, 5) of [batch_id, x1, y1, x2, y2] rows.",
				TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "Y", Doc: "RoI pooled 4-D output tensor.", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           roiPoolShapeInference,
	})

	RegisterSchema(&OpSchema{
		OpType:       "Conv",
		SinceVersion: 1,
		Doc:          "Convolves the input tensor with a filter to compute the output.",
		Attrs: []AttrSpec{
			{Name: "kernel_shape",
				Doc:  "The shape of the convolution kernel. If not present, inferred from input W.",
				Type: AttrInts},
			dilationsAttr,
			stridesAttr,
			autoPadAttr,
			padsAttr,
			groupAttr,
		},
		Inputs: []ParamSpec{
			{Name: "X", Doc: nchwInputDoc, TypeStr: "T"},
			{Name: "W",
				Doc:     "Filter tensor shaped (M x C x k1 x ... x kn): feature maps, channels, then the kernel extents.",
				TypeStr: "T"},
			{Name: "B", Doc: "Optional 1-D bias of size M.", TypeStr: "T", Optional: true},
		},
		Outputs: []ParamSpec{
			{Name: "Y", Doc: "Convolution output tensor; spatial extents follow from kernel, stride and pads.", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer: func(ctx *InferenceContext) {
			convPoolShapeInference(ctx, true, false)
		},
	})

	RegisterSchema(&OpSchema{
		OpType:       "ConvTranspose",
		SinceVersion: 1,
		Doc: "Computes the transposed convolution of the input tensor with a " +
			"filter. Output spatial extents follow " +
			"stride*(input-1) + output_padding + kernel - pads, unless " +
			"output_shape fixes them explicitly.",
		Attrs: []AttrSpec{
			{Name: "kernel_shape",
				Doc:  "The shape of the convolution kernel. If not present, inferred from input W.",
				Type: AttrInts},
			{Name: "output_shape",
				Doc:  "Explicit output spatial extents; when present, pads values are derived and ignored here.",
				Type: AttrInts},
			{Name: "output_padding",
				Doc:  "Zero padding added to one side of each output spatial axis.",
				Type: AttrInts},
			dilationsAttr,
			stridesAttr,
			autoPadAttr,
			padsAttr,
			groupAttr,
		},
		Inputs: []ParamSpec{
			{Name: "X", Doc: nchwInputDoc, TypeStr: "T"},
			{Name: "W",
				Doc:     "Filter tensor shaped (C x M x k1 x ... x kn): channels, feature maps, then the kernel extents.",
				TypeStr: "T"},
			{Name: "B", Doc: "Optional 1-D bias of size C.", TypeStr: "T", Optional: true},
		},
		Outputs: []ParamSpec{
			{Name: "Y", Doc: "Transposed convolution output tensor.", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           convTransposeShapeInference,
	})

	RegisterSchema(globalPoolSchema("GlobalAveragePool",
		"Averages all values per channel: AveragePool with the kernel spanning "+
			"the whole spatial extent.", 1))
	RegisterSchema(globalPoolSchema("GlobalMaxPool",
		"Takes the maximum of all values per channel: MaxPool with the kernel "+
			"spanning the whole spatial extent.", 1))
	RegisterSchema(globalPoolSchema("GlobalLpPool",
		"Applies the Lp norm across all values per channel: LpPool with the "+
			"kernel spanning the whole spatial extent.", 2, lpPAttr))

	RegisterSchema(&OpSchema{
		OpType:       "BatchNormalization",
		SinceVersion: 7,
		Doc: "Carries out batch normalization. Outputs either Y alone (test " +
			"mode) or Y plus the running and saved statistics (training mode).",
		Attrs: []AttrSpec{
			{Name: "spatial",
				Doc:     "Compute the statistics across all spatial elements (1) or per feature (0).",
				Type:    AttrInt,
				Default: IntAttr("spatial", 1)},
			{Name: "epsilon",
				Doc:     "Added to the variance to avoid division by zero.",
				Type:    AttrFloat,
				Default: FloatAttr("epsilon", 1e-5)},
			{Name: "momentum",
				Doc:     "Factor used in computing the running mean and variance.",
				Type:    AttrFloat,
				Default: FloatAttr("momentum", 0.9)},
		},
		Inputs: []ParamSpec{
			{Name: "X", Doc: nchwInputDoc, TypeStr: "T"},
			{Name: "scale", Doc: "1-D scale tensor of size C.", TypeStr: "T"},
			{Name: "B", Doc: "1-D bias tensor of size C.", TypeStr: "T"},
			{Name: "mean", Doc: "Running (training) or estimated (testing) mean, 1-D of size C.", TypeStr: "T"},
			{Name: "var", Doc: "Running (training) or estimated (testing) variance, 1-D of size C.", TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "Y", Doc: "Output tensor of the same shape as X.", TypeStr: "T"},
			{Name: "mean", Doc: "Running mean after the operator.", TypeStr: "T", Optional: true},
			{Name: "var", Doc: "Running variance after the operator.", TypeStr: "T", Optional: true},
			{Name: "saved_mean", Doc: "Saved mean used during training.", TypeStr: "T", Optional: true},
			{Name: "saved_var", Doc: "Saved variance used during training.", TypeStr: "T", Optional: true},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           propagateShapeAndTypeFromFirstInput,
	})

	RegisterSchema(&OpSchema{
		OpType:       "InstanceNormalization",
		SinceVersion: 6,
		Doc: "Normalizes the input per instance per channel: " +
			"y = scale * (x - mean) / sqrt(variance + epsilon) + B.",
		Attrs: []AttrSpec{
			{Name: "epsilon",
				Doc:     "Added to the variance to avoid division by zero.",
				Type:    AttrFloat,
				Default: FloatAttr("epsilon", 1e-5)},
		},
		Inputs: []ParamSpec{
			{Name: "input", Doc: nchwInputDoc, TypeStr: "T"},
			{Name: "scale", Doc: "1-D scale tensor of size C.", TypeStr: "T"},
			{Name: "B", Doc: "1-D bias tensor of size C.", TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "output", Doc: "Output tensor of the same shape as input.", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           propagateShapeAndTypeFromFirstInput,
	})

	RegisterSchema(&OpSchema{
		OpType:       "LpNormalization",
		SinceVersion: 1,
		Doc:          "Applies Lp-normalization along the given axis.",
		Attrs: []AttrSpec{
			{Name: "axis",
				Doc:     "The axis to normalize along; -1 means the last axis.",
				Type:    AttrInt,
				Default: IntAttr("axis", -1)},
			{Name: "p",
				Doc:     "Order of the normalization; only 1 and 2 are supported.",
				Type:    AttrInt,
				Default: IntAttr("p", 2)},
		},
		Inputs: []ParamSpec{
			{Name: "input", Doc: "Input matrix.", TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "output", Doc: "Matrix after normalization.", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           propagateShapeAndTypeFromFirstInput,
	})

	RegisterSchema(&OpSchema{
		OpType:       "Dropout",
		SinceVersion: 7,
		Doc: "Produces a random dropout of the input, or a plain copy in test " +
			"mode, optionally together with the dropout mask.",
		Attrs: []AttrSpec{
			{Name: "ratio",
				Doc:     "Ratio of values dropped.",
				Type:    AttrFloat,
				Default: FloatAttr("ratio", 0.5)},
		},
		Inputs: []ParamSpec{
			{Name: "data", Doc: "The input tensor.", TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "output", Doc: "The output tensor.", TypeStr: "T"},
			{Name: "mask", Doc: "The dropout mask.", TypeStr: "T", Optional: true},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           propagateShapeAndTypeFromFirstInput,
	})

	RegisterSchema(&OpSchema{
		OpType:       "Flatten",
		SinceVersion: 1,
		Doc: "Flattens the input into a 2-D matrix: dimensions up to axis " +
			"(exclusive) form the outer extent, the rest the inner extent.",
		Attrs: []AttrSpec{
			{Name: "axis",
				Doc: "Split point of the flattening, in [0, rank]. With axis=0 " +
					"the output is shaped (1, total number of elements).",
				Type:    AttrInt,
				Default: IntAttr("axis", 1)},
		},
		Inputs: []ParamSpec{
			{Name: "input", Doc: "A tensor of rank >= axis.", TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "output", Doc: "The flattened 2-D tensor.", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           flattenShapeInference,
	})

	RegisterSchema(&OpSchema{
		OpType:       "LRN",
		SinceVersion: 1,
		Doc: "Local response normalization: each element is divided by " +
			"(bias + alpha/size * sum of squares over a window of neighboring " +
			"channels) ** beta.",
		Attrs: []AttrSpec{
			{Name: "size", Doc: "The number of channels to sum over.",
				Type: AttrInt, Required: true},
			{Name: "alpha", Doc: "Scaling parameter.",
				Type: AttrFloat, Default: FloatAttr("alpha", 1e-4)},
			{Name: "beta", Doc: "The exponent.",
				Type: AttrFloat, Default: FloatAttr("beta", 0.75)},
			{Name: "bias", Doc: "Additive constant inside the normalization.",
				Type: AttrFloat, Default: FloatAttr("bias", 1.0)},
		},
		Inputs: []ParamSpec{
			{Name: "X", Doc: nchwInputDoc, TypeStr: "T"},
		},
		Outputs: []ParamSpec{
			{Name: "Y", Doc: "Output tensor of the same shape and type as X.", TypeStr: "T"},
		},
		TypeConstraints: []TypeConstraint{floatTensorTypes},
		Infer:           propagateShapeAndTypeFromFirstInput,
	})
}
