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

package space

import (
	"github.com/gomlx/deeparchitect/graph"
	"github.com/pkg/errors"
)

// Residual wraps a module with a skip connection: the wrapped module's output
// is summed element-wise with its input. The skip is metadata on the compiled
// fragment (an extra edge into the Add node), not a structural edge of the
// module tree.
//
// The wrapped module must preserve shape. A mismatch is only detectable once
// every hyperparameter is resolved, so it surfaces at compile time as a
// *graph.FragmentShapeError.
type Residual struct {
	wrapped Module
}

// NewResidual wraps a module with an input-to-output skip connection.
func NewResidual(wrapped Module) *Residual {
	return &Residual{wrapped: wrapped}
}

// Unresolved implements Module.
func (m *Residual) Unresolved() *Hyperparameter {
	return m.wrapped.Unresolved()
}

// Compile implements Module.
func (m *Residual) Compile(input *graph.Node, scope *Scope) (*graph.Node, error) {
	if err := notResolvedCheck(m, "residual"); err != nil {
		return nil, err
	}
	instance, err := scope.NewInstance("residual")
	if err != nil {
		return nil, err
	}
	branch, err := m.wrapped.Compile(input, scope)
	if err != nil {
		return nil, errors.WithMessagef(err, "compiling %s", instance)
	}
	var output *graph.Node
	err = catchFragmentErrors(func() {
		output = graph.Add(input, branch)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "wiring %s skip connection", instance)
	}
	return output, nil
}

// ReprProgram implements Module.
func (m *Residual) ReprProgram() string {
	return "Residual\n" + indentLines(m.wrapped.ReprProgram())
}

// Kind implements Module.
func (m *Residual) Kind() Kind { return KindResidual }
