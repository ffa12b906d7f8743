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

// Repeat unfolds into a sequential chain of copies of a template module. One
// hyperparameter named "count" selects the number of copies from the given
// candidates. A count of 0 compiles to an identity pass-through.
//
// In the untied form each copy resolves its hyperparameters independently. In
// the tied form (NewRepeatTied) the copies' hyperparameters are tied pairwise
// in discovery order, so resolving a choice on any copy resolves the same
// choice on all of them -- tied copies stay structurally identical.
//
// The template is a factory function rather than a Module because each copy
// must be an independent instance with fresh hyperparameters.
type Repeat struct {
	newTemplate func() Module
	count       *Hyperparameter
	tied        bool
	unfolded    bool
	children    []Module
}

// NewRepeat creates a Repeat whose copies resolve independently. counts are
// the candidate repetition counts (ints, may include 0).
func NewRepeat(newTemplate func() Module, counts []any) *Repeat {
	return &Repeat{
		newTemplate: newTemplate,
		count:       NewHyperparameter("count", counts),
	}
}

// NewRepeatTied creates a Repeat whose copies share every hyperparameter
// value.
func NewRepeatTied(newTemplate func() Module, counts []any) *Repeat {
	r := NewRepeat(newTemplate, counts)
	r.tied = true
	return r
}

// CountHyperparameter returns the repetition-count hyperparameter.
func (m *Repeat) CountHyperparameter() *Hyperparameter { return m.count }

// Children returns the materialized copies: empty until the count resolves
// and the module unfolds.
func (m *Repeat) Children() []Module { return xslices.Copy(m.children) }

func (m *Repeat) typeName() string {
	if m.tied {
		return "repeat_tied"
	}
	return "repeat"
}

func (m *Repeat) unfold() {
	m.unfolded = true
	k := m.count.Value().(int)
	m.children = make([]Module, k)
	for ii := range m.children {
		m.children[ii] = m.newTemplate()
	}
}

// Unresolved implements Module.
//
// For tied repeats the copies are driven in lockstep: each call finds the
// first copy's next unresolved hyperparameter, ties the corresponding
// hyperparameter of every other copy to it, and returns it. Since all copies
// come from the same template and resolve to the same values, their discovery
// orders match.
func (m *Repeat) Unresolved() *Hyperparameter {
	if !m.unfolded {
		if !m.count.IsResolved() {
			return m.count
		}
		m.unfold()
	}
	if len(m.children) == 0 {
		return nil
	}
	if !m.tied {
		for _, child := range m.children {
			if hp := child.Unresolved(); hp != nil {
				return hp
			}
		}
		return nil
	}
	first := m.children[0].Unresolved()
	for _, child := range m.children[1:] {
		hp := child.Unresolved()
		if first != nil && hp != nil {
			// Tie never fails here: first is unresolved at this point.
			_ = first.Tie(hp)
		}
	}
	return first
}

// Compile implements Module.
func (m *Repeat) Compile(input *graph.Node, scope *Scope) (*graph.Node, error) {
	if err := notResolvedCheck(m, m.typeName()); err != nil {
		return nil, err
	}
	instance, err := scope.NewInstance(m.typeName())
	if err != nil {
		return nil, err
	}
	scope.Set(instance, "count", m.count.Value())
	if len(m.children) == 0 {
		return graph.Identity(input), nil
	}
	x := input
	for ii, child := range m.children {
		x, err = child.Compile(x, scope)
		if err != nil {
			return nil, errors.WithMessagef(err, "compiling %s copy #%d", instance, ii)
		}
	}
	return x, nil
}

// ReprProgram implements Module.
func (m *Repeat) ReprProgram() string {
	name := "Repeat"
	if m.tied {
		name = "RepeatTied"
	}
	header := reprHeader(name, []*Hyperparameter{m.count})
	if !m.unfolded {
		return header + "\n" + indentLines(m.newTemplate().ReprProgram())
	}
	parts := []string{header}
	for _, child := range m.children {
		parts = append(parts, indentLines(child.ReprProgram()))
	}
	return strings.Join(parts, "\n")
}

// Kind implements Module.
func (m *Repeat) Kind() Kind {
	if m.tied {
		return KindRepeatTied
	}
	return KindRepeat
}
