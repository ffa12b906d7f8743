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
)

// NamedValues declares one named hyperparameter and its candidate values, for
// NewHyperparams.
type NamedValues struct {
	Name   string
	Values []any
}

// Hyperparams is a module holding named hyperparameters not tied to any
// compute fragment, so that evaluator-side choices (learning rate, batch
// size, ...) are searched jointly with architecture choices.
//
// It compiles to an identity pass-through and records the resolved names and
// values into the Scope under HyperpNamesKey and HyperpValsKey -- the
// documented retrieval convention for evaluators.
type Hyperparams struct {
	names []string
	hps   []*Hyperparameter
}

// NewHyperparams creates a Hyperparams module declaring the given choices, in
// order.
func NewHyperparams(pairs ...NamedValues) *Hyperparams {
	m := &Hyperparams{}
	for _, pair := range pairs {
		m.names = append(m.names, pair.Name)
		m.hps = append(m.hps, NewHyperparameter(pair.Name, pair.Values))
	}
	return m
}

// Hyperparameters returns the declared hyperparameters, in declaration order.
func (m *Hyperparams) Hyperparameters() []*Hyperparameter { return m.hps }

// Unresolved implements Module.
func (m *Hyperparams) Unresolved() *Hyperparameter {
	for _, hp := range m.hps {
		if !hp.IsResolved() {
			return hp
		}
	}
	return nil
}

// Compile implements Module.
func (m *Hyperparams) Compile(input *graph.Node, scope *Scope) (*graph.Node, error) {
	if err := notResolvedCheck(m, "hyperparams"); err != nil {
		return nil, err
	}
	instance, err := scope.NewInstance("hyperparams")
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(m.hps))
	for ii, hp := range m.hps {
		values = append(values, hp.Value())
		scope.Set(instance, m.names[ii], hp.Value())
	}
	scope.Set(instance, HyperpNamesKey, append([]string(nil), m.names...))
	scope.Set(instance, HyperpValsKey, values)
	return graph.Identity(input), nil
}

// ReprProgram implements Module.
func (m *Hyperparams) ReprProgram() string {
	return reprHeader("Hyperparams", m.hps)
}

// Kind implements Module.
func (m *Hyperparams) Kind() Kind { return KindHyperparams }
