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
	"fmt"
	"strings"

	"github.com/gomlx/deeparchitect/graph"
	"github.com/gomlx/deeparchitect/types/xslices"
	"github.com/pkg/errors"
)

// Optional includes or skips its wrapped module, controlled by one
// boolean-valued hyperparameter named "include". When skipped it compiles to
// an identity pass-through, and the wrapped module never unfolds nor
// contributes hyperparameters.
type Optional struct {
	wrapped  Module
	include  *Hyperparameter
	unfolded bool

	// selected is the wrapped module when included, nil when skipped.
	selected Module
}

// NewOptional wraps a module in an include-or-skip choice.
func NewOptional(wrapped Module) *Optional {
	return &Optional{
		wrapped: wrapped,
		include: NewHyperparameter("include", []any{true, false}),
	}
}

// IncludeHyperparameter returns the boolean choice hyperparameter.
func (m *Optional) IncludeHyperparameter() *Hyperparameter { return m.include }

// unfold materializes the choice. One-directional: it runs at most once.
func (m *Optional) unfold() {
	m.unfolded = true
	if m.include.Value() == true {
		m.selected = m.wrapped
	}
}

// Unresolved implements Module.
func (m *Optional) Unresolved() *Hyperparameter {
	if !m.unfolded {
		if !m.include.IsResolved() {
			return m.include
		}
		m.unfold()
	}
	if m.selected == nil {
		return nil
	}
	return m.selected.Unresolved()
}

// Compile implements Module.
func (m *Optional) Compile(input *graph.Node, scope *Scope) (*graph.Node, error) {
	if err := notResolvedCheck(m, "optional"); err != nil {
		return nil, err
	}
	instance, err := scope.NewInstance("optional")
	if err != nil {
		return nil, err
	}
	scope.Set(instance, "include", m.include.Value())
	if m.selected == nil {
		return graph.Identity(input), nil
	}
	output, err := m.selected.Compile(input, scope)
	if err != nil {
		return nil, errors.WithMessagef(err, "compiling %s", instance)
	}
	return output, nil
}

// ReprProgram implements Module.
func (m *Optional) ReprProgram() string {
	header := reprHeader("Optional", []*Hyperparameter{m.include})
	if m.unfolded && m.selected == nil {
		return header
	}
	return header + "\n" + indentLines(m.wrapped.ReprProgram())
}

// Kind implements Module.
func (m *Optional) Kind() Kind { return KindOptional }

// Or selects exactly one among a fixed list of alternative modules, controlled
// by one hyperparameter named "choice" whose candidates are the alternative
// indices 0..n-1. Unselected alternatives never unfold nor contribute
// hyperparameters.
type Or struct {
	alternatives []Module
	choice       *Hyperparameter
	unfolded     bool
	selected     Module
}

// NewOr creates an Or over the given alternatives. It requires at least one
// alternative -- an empty Or describes no architecture at all.
func NewOr(alternatives ...Module) *Or {
	indices := make([]any, len(alternatives))
	for ii := range alternatives {
		indices[ii] = ii
	}
	return &Or{
		alternatives: xslices.Copy(alternatives),
		choice:       NewHyperparameter("choice", indices),
	}
}

// ChoiceHyperparameter returns the index-valued choice hyperparameter.
func (m *Or) ChoiceHyperparameter() *Hyperparameter { return m.choice }

// Selected returns the chosen alternative, or nil while the choice is
// unresolved.
func (m *Or) Selected() Module { return m.selected }

func (m *Or) unfold() {
	m.unfolded = true
	m.selected = m.alternatives[m.choice.Value().(int)]
}

// Unresolved implements Module.
func (m *Or) Unresolved() *Hyperparameter {
	if !m.unfolded {
		if !m.choice.IsResolved() {
			return m.choice
		}
		m.unfold()
	}
	return m.selected.Unresolved()
}

// Compile implements Module.
func (m *Or) Compile(input *graph.Node, scope *Scope) (*graph.Node, error) {
	if err := notResolvedCheck(m, "or"); err != nil {
		return nil, err
	}
	instance, err := scope.NewInstance("or")
	if err != nil {
		return nil, err
	}
	scope.Set(instance, "choice", m.choice.Value())
	output, err := m.selected.Compile(input, scope)
	if err != nil {
		return nil, errors.WithMessagef(err, "compiling %s", instance)
	}
	return output, nil
}

// ReprProgram implements Module.
func (m *Or) ReprProgram() string {
	header := reprHeader("Or", []*Hyperparameter{m.choice})
	if m.unfolded {
		return header + "\n" + indentLines(m.selected.ReprProgram())
	}
	parts := []string{header}
	for ii, alternative := range m.alternatives {
		parts = append(parts, indentLines(fmt.Sprintf("#%d: %s", ii, alternative.ReprProgram())))
	}
	return strings.Join(parts, "\n")
}

// Kind implements Module.
func (m *Or) Kind() Kind { return KindOr }
