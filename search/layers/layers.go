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

// Package layers provides the leaf compute modules of a search space: each
// constructor takes one list of candidate values per hyperparameter and
// returns a space.Leaf that compiles to the corresponding graph op once those
// hyperparameters are resolved.
//
// By convention in this package, layers are nouns ("affine", "conv2d") and
// their hyperparameters name the quantity they select ("units", "rate").
package layers

import (
	"github.com/gomlx/deeparchitect/graph"
	"github.com/gomlx/deeparchitect/search/space"
)

// Initializer strategy names accepted by Affine and Conv2D.
const (
	InitXavier        = "xavier"
	InitHeNormal      = "he_normal"
	InitRandomUniform = "random_uniform"
)

// Affine is a learnable affine transformation of the last axis
// (graph.Dense). units are the candidate output dimensions, initializers the
// candidate weight-initialization strategies.
func Affine(units []any, initializers []any) *space.Leaf {
	hpUnits := space.NewHyperparameter("units", units)
	hpInit := space.NewHyperparameter("initializer", initializers)
	return space.NewLeaf("affine",
		[]*space.Hyperparameter{hpUnits, hpInit},
		func(input *graph.Node, values map[string]any) *graph.Node {
			return graph.Dense(input, values["units"].(int), values["initializer"].(string))
		})
}

// Activation is an element-wise nonlinearity; kinds are the candidate
// activation names ("relu", "tanh", "sigmoid", ...).
func Activation(kinds []any) *space.Leaf {
	hpKind := space.NewHyperparameter("kind", kinds)
	return space.NewLeaf("activation",
		[]*space.Hyperparameter{hpKind},
		func(input *graph.Node, values map[string]any) *graph.Node {
			return graph.Activation(input, values["kind"].(string))
		})
}

// ReLU is an Activation fixed to "relu". A zero-choice leaf: it contributes
// no unresolved hyperparameters beyond the pre-resolved kind.
func ReLU() *space.Leaf {
	return space.NewLeaf("relu", nil,
		func(input *graph.Node, _ map[string]any) *graph.Node {
			return graph.Activation(input, "relu")
		})
}

// Dropout zeroes activations with a searched rate; rates are the candidate
// dropout rates (float64 in [0, 1)).
func Dropout(rates []any) *space.Leaf {
	hpRate := space.NewHyperparameter("rate", rates)
	return space.NewLeaf("dropout",
		[]*space.Hyperparameter{hpRate},
		func(input *graph.Node, values map[string]any) *graph.Node {
			return graph.Dropout(input, values["rate"].(float64))
		})
}

// BatchNorm normalizes over the batch axis. It has no hyperparameters.
func BatchNorm() *space.Leaf {
	return space.NewLeaf("batchnorm", nil,
		func(input *graph.Node, _ map[string]any) *graph.Node {
			return graph.BatchNorm(input)
		})
}

// Conv2D is a 2D convolution ("same" padding, stride 1) over rank-4 inputs.
func Conv2D(filters, kernelSizes, initializers []any) *space.Leaf {
	hpFilters := space.NewHyperparameter("filters", filters)
	hpKernel := space.NewHyperparameter("kernel_size", kernelSizes)
	hpInit := space.NewHyperparameter("initializer", initializers)
	return space.NewLeaf("conv2d",
		[]*space.Hyperparameter{hpFilters, hpKernel, hpInit},
		func(input *graph.Node, values map[string]any) *graph.Node {
			return graph.Conv2D(input, values["filters"].(int), values["kernel_size"].(int),
				values["initializer"].(string))
		})
}

// MaxPool2D reduces the spatial dimensions of rank-4 inputs by a searched
// square window.
func MaxPool2D(windows []any) *space.Leaf {
	hpWindow := space.NewHyperparameter("window", windows)
	return space.NewLeaf("maxpool2d",
		[]*space.Hyperparameter{hpWindow},
		func(input *graph.Node, values map[string]any) *graph.Node {
			return graph.MaxPool2D(input, values["window"].(int))
		})
}
