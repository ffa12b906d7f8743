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
	"strings"

	"github.com/gomlx/deeparchitect/graph"
	"github.com/gomlx/deeparchitect/types/xslices"
	"github.com/pkg/errors"
)

// Concat is the sequential composition of a fixed list of children: the input
// chains through each child in order and the output is the last child's
// output. It has no hyperparameter of its own and is considered unfolded at
// construction.
type Concat struct {
	children []Module
}

// NewConcat creates a Concat over the given children, in order.
func NewConcat(children ...Module) *Concat {
	return &Concat{children: xslices.Copy(children)}
}

// Children returns the fixed child list.
func (m *Concat) Children() []Module { return m.children }

// Unresolved implements Module.
func (m *Concat) Unresolved() *Hyperparameter {
	for _, child := range m.children {
		if hp := child.Unresolved(); hp != nil {
			return hp
		}
	}
	return nil
}

// Compile implements Module.
func (m *Concat) Compile(input *graph.Node, scope *Scope) (*graph.Node, error) {
	if err := notResolvedCheck(m, "concat"); err != nil {
		return nil, err
	}
	instance, err := scope.NewInstance("concat")
	if err != nil {
		return nil, err
	}
	scope.Set(instance, "num_children", len(m.children))
	if len(m.children) == 0 {
		return graph.Identity(input), nil
	}
	x := input
	for ii, child := range m.children {
		x, err = child.Compile(x, scope)
		if err != nil {
			return nil, errors.WithMessagef(err, "compiling %s child #%d", instance, ii)
		}
	}
	return x, nil
}

// ReprProgram implements Module.
func (m *Concat) ReprProgram() string {
	parts := []string{"Concat"}
	for _, child := range m.children {
		parts = append(parts, indentLines(child.ReprProgram()))
	}
	return strings.Join(parts, "\n")
}

// Kind implements Module.
func (m *Concat) Kind() Kind { return KindConcat }
