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
	"testing"

	"github.com/gomlx/deeparchitect/types/shapes"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeInference(t *testing.T) {
	g := New("test")
	input := g.Input(shapes.Make(dtypes.Float32, 8, 16))
	require.Equal(t, InputOp, input.Type())

	dense := Dense(input, 4, "xavier")
	assert.True(t, dense.Shape().Equal(shapes.Make(dtypes.Float32, 8, 4)))
	units, found := dense.Attr("units")
	require.True(t, found)
	assert.Equal(t, 4, units)

	relu := Activation(dense, "relu")
	assert.True(t, relu.Shape().Equal(dense.Shape()))

	identity := Identity(relu)
	assert.True(t, identity.Shape().Equal(relu.Shape()))

	assert.Equal(t, 4, g.NumNodes())
	assert.Equal(t, []*Node{dense}, relu.Inputs())
}

func TestConv2DAndPooling(t *testing.T) {
	g := New("test")
	image := g.Input(shapes.Make(dtypes.Float32, 2, 8, 8, 3))
	conv := Conv2D(image, 16, 3, "he_normal")
	assert.True(t, conv.Shape().Equal(shapes.Make(dtypes.Float32, 2, 8, 8, 16)))
	pool := MaxPool2D(conv, 2)
	assert.True(t, pool.Shape().Equal(shapes.Make(dtypes.Float32, 2, 4, 4, 16)))

	// Conv on a flat input is a shape error.
	flat := g.Input(shapes.Make(dtypes.Float32, 2, 8))
	err := exceptions.TryCatch[error](func() { Conv2D(flat, 16, 3, "xavier") })
	require.Error(t, err)
	var shapeErr *FragmentShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, Conv2DOp, shapeErr.Op)

	// Pooling with a window that doesn't divide the spatial dimensions.
	err = exceptions.TryCatch[error](func() { MaxPool2D(conv, 3) })
	require.Error(t, err)
	require.True(t, errors.As(err, &shapeErr))
}

func TestAddShapeMismatch(t *testing.T) {
	g := New("test")
	input := g.Input(shapes.Make(dtypes.Float32, 8, 16))
	branch := Dense(input, 8, "xavier")

	err := exceptions.TryCatch[error](func() { Add(input, branch) })
	require.Error(t, err)
	var shapeErr *FragmentShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, AddOp, shapeErr.Op)
	assert.Len(t, shapeErr.Shapes, 2)

	// Matching shapes work.
	matching := Dense(input, 16, "xavier")
	sum := Add(input, matching)
	assert.True(t, sum.Shape().Equal(input.Shape()))
}

func TestNodeString(t *testing.T) {
	g := New("test")
	input := g.Input(shapes.Make(dtypes.Float32, 8, 16))
	dense := Dense(input, 4, "xavier")
	assert.Contains(t, dense.String(), "Dense")
	assert.Contains(t, dense.String(), "units=4")
	assert.Contains(t, g.String(), "2 nodes")
}
