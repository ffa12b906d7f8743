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

package search

import (
	"github.com/gomlx/deeparchitect/graph"
	"github.com/gomlx/deeparchitect/search/space"
)

// CompiledModel is one fully compiled architecture, handed to the Evaluator.
// The loop guarantees no unresolved hyperparameter remains in Root.
type CompiledModel struct {
	// Graph with the compiled fragments.
	Graph *graph.Graph

	// Input and Output nodes of the architecture within Graph.
	Input, Output *graph.Node

	// Scope with every module instance's resolved state. Evaluators may read
	// search-space-external hyperparameters from it; see space.HyperpNamesKey
	// and space.HyperpValsKey for the stable convention.
	Scope *space.Scope

	// Root of the (fully resolved) module tree, for diagnostics.
	Root space.Module
}

// Evaluator trains and scores one compiled architecture. It is the boundary
// to the numeric training stack: dataset handling, the gradient loop and
// checkpointing all live behind this interface.
//
// Higher scores are better. An error marks the trial failed; the search loop
// records it and moves on to the next candidate.
type Evaluator interface {
	EvalModel(model *CompiledModel) (score float64, err error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(model *CompiledModel) (float64, error)

// EvalModel implements Evaluator.
func (fn EvaluatorFunc) EvalModel(model *CompiledModel) (float64, error) {
	return fn(model)
}
