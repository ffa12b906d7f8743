/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package graph

import (
	"fmt"

	"github.com/gomlx/deeparchitect/types/shapes"
	"github.com/pkg/errors"
)

// OpType identifies the operation that created a Node.
type OpType int

const (
	InvalidOp OpType = iota
	InputOp
	IdentityOp
	DenseOp
	Conv2DOp
	MaxPool2DOp
	ActivationOp
	BatchNormOp
	DropoutOp
	AddOp
)

// String implements fmt.Stringer.
func (op OpType) String() string {
	switch op {
	case InputOp:
		return "Input"
	case IdentityOp:
		return "Identity"
	case DenseOp:
		return "Dense"
	case Conv2DOp:
		return "Conv2D"
	case MaxPool2DOp:
		return "MaxPool2D"
	case ActivationOp:
		return "Activation"
	case BatchNormOp:
		return "BatchNorm"
	case DropoutOp:
		return "Dropout"
	case AddOp:
		return "Add"
	default:
		return fmt.Sprintf("InvalidOp(%d)", int(op))
	}
}

// FragmentShapeError is the panic value raised by op constructors when the
// input shapes are incompatible with the operation. It only surfaces at
// fragment-building time, after all hyperparameters are resolved, since only
// then shapes are known.
type FragmentShapeError struct {
	// Op that rejected its inputs.
	Op OpType

	// Shapes of the offending inputs.
	Shapes []shapes.Shape

	// Message details the incompatibility.
	Message string
}

// Error implements the error interface.
func (e *FragmentShapeError) Error() string {
	return fmt.Sprintf("%s: incompatible fragment shapes %v: %s", e.Op, e.Shapes, e.Message)
}

// panicShapef panics with a *FragmentShapeError wrapped with a stack trace.
// It is recovered by exceptions.TryCatch[error] at API boundaries.
func panicShapef(op OpType, inputs []*Node, format string, args ...any) {
	err := &FragmentShapeError{
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
	for _, input := range inputs {
		err.Shapes = append(err.Shapes, input.Shape())
	}
	panic(errors.WithStack(err))
}

// Input creates an input node of the given shape. Architectures compiled from
// a search space take exactly one input (multi-input wiring is a future
// extension).
func (g *Graph) Input(shape shapes.Shape) *Node {
	node := g.newNode(InputOp, shape, nil, nil)
	g.inputs = append(g.inputs, node)
	return node
}

// Identity passes x through unchanged. Used by modules that compile to a
// no-op (skipped Optional, Repeat with count 0).
func Identity(x *Node) *Node {
	return x.graph.newNode(IdentityOp, x.Shape(), []*Node{x}, nil)
}

// Dense is a learnable affine transformation of the last axis of x: the output
// has the same shape except the last dimension becomes units.
//
// initializer names the weight-initialization strategy; the graph records it
// as metadata for the trainer.
func Dense(x *Node, units int, initializer string) *Node {
	if x.Rank() < 1 {
		panicShapef(DenseOp, []*Node{x}, "input must have rank >= 1, got %s", x.Shape())
	}
	if units <= 0 {
		panicShapef(DenseOp, []*Node{x}, "units must be positive, got %d", units)
	}
	dims := x.Shape().Clone().Dimensions
	dims[len(dims)-1] = units
	shape := shapes.Make(x.DType(), dims...)
	return x.graph.newNode(DenseOp, shape, []*Node{x},
		map[string]any{"units": units, "initializer": initializer})
}

// Conv2D is a 2D convolution with "same" padding and stride 1, on inputs
// shaped [batch, height, width, channels]. The output has the same spatial
// dimensions and filters output channels.
func Conv2D(x *Node, filters, kernelSize int, initializer string) *Node {
	if x.Rank() != 4 {
		panicShapef(Conv2DOp, []*Node{x}, "input must be rank-4 [batch, height, width, channels], got %s", x.Shape())
	}
	if filters <= 0 || kernelSize <= 0 {
		panicShapef(Conv2DOp, []*Node{x}, "filters (%d) and kernelSize (%d) must be positive", filters, kernelSize)
	}
	shape := shapes.Make(x.DType(), x.Shape().Dim(0), x.Shape().Dim(1), x.Shape().Dim(2), filters)
	return x.graph.newNode(Conv2DOp, shape, []*Node{x},
		map[string]any{"filters": filters, "kernel_size": kernelSize, "initializer": initializer})
}

// MaxPool2D reduces the spatial dimensions of a rank-4 input by a square
// window with stride equal to the window size. The spatial dimensions must be
// divisible by the window.
func MaxPool2D(x *Node, window int) *Node {
	if x.Rank() != 4 {
		panicShapef(MaxPool2DOp, []*Node{x}, "input must be rank-4 [batch, height, width, channels], got %s", x.Shape())
	}
	if window <= 0 {
		panicShapef(MaxPool2DOp, []*Node{x}, "window must be positive, got %d", window)
	}
	height, width := x.Shape().Dim(1), x.Shape().Dim(2)
	if height%window != 0 || width%window != 0 {
		panicShapef(MaxPool2DOp, []*Node{x},
			"spatial dimensions [%d, %d] not divisible by window %d", height, width, window)
	}
	shape := shapes.Make(x.DType(), x.Shape().Dim(0), height/window, width/window, x.Shape().Dim(3))
	return x.graph.newNode(MaxPool2DOp, shape, []*Node{x}, map[string]any{"window": window})
}

// Activation applies the named element-wise nonlinearity (e.g. "relu",
// "tanh", "sigmoid") to x. The shape is unchanged.
func Activation(x *Node, kind string) *Node {
	return x.graph.newNode(ActivationOp, x.Shape(), []*Node{x}, map[string]any{"kind": kind})
}

// BatchNorm normalizes x over the batch axis. The shape is unchanged.
func BatchNorm(x *Node) *Node {
	if x.Rank() < 2 {
		panicShapef(BatchNormOp, []*Node{x}, "input must have a batch axis plus features, got rank %d", x.Rank())
	}
	return x.graph.newNode(BatchNormOp, x.Shape(), []*Node{x}, nil)
}

// Dropout randomly zeroes elements of x with the given rate during training.
// The shape is unchanged.
func Dropout(x *Node, rate float64) *Node {
	if rate < 0 || rate >= 1 {
		panicShapef(DropoutOp, []*Node{x}, "rate must be in [0, 1), got %g", rate)
	}
	return x.graph.newNode(DropoutOp, x.Shape(), []*Node{x}, map[string]any{"rate": rate})
}

// Add sums x and y element-wise. Both shapes must be identical -- this is
// where Residual wiring with mismatched branches fails.
func Add(x, y *Node) *Node {
	if x.graph != y.graph {
		panicShapef(AddOp, []*Node{x, y}, "operands belong to different graphs (%q and %q)",
			x.graph.Name(), y.graph.Name())
	}
	if !x.Shape().Equal(y.Shape()) {
		panicShapef(AddOp, []*Node{x, y}, "operands must have identical shapes, got %s and %s",
			x.Shape(), y.Shape())
	}
	return x.graph.newNode(AddOp, x.Shape(), []*Node{x, y}, nil)
}
