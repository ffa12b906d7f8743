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

// Package space implements the search-space engine: the composable module tree
// that represents a combinatorial set of architectures, the hyperparameters
// attached to it, and the compile protocol that turns a fully resolved tree
// into computation-graph fragments.
//
// A search space is built by nesting module constructors:
//
//	root := space.NewConcat(
//		layers.Affine([]any{64, 128}, []any{"xavier"}),
//		space.NewOptional(layers.Activation([]any{"relu", "tanh"})),
//		space.NewRepeat(func() space.Module {
//			return layers.Affine([]any{32}, []any{"xavier"})
//		}, []any{0, 1, 2}),
//	)
//
// A searcher then repeatedly asks the root for one unresolved Hyperparameter
// (Module.Unresolved) and resolves it. Resolving a composite's own
// hyperparameter makes it unfold into children on the next Unresolved call --
// an irreversible state transition -- so the set of hyperparameters grows
// lazily as choices are made. When Unresolved returns nil the tree describes
// exactly one architecture and Module.Compile emits its graph fragments,
// recording every instance's resolved state into the Scope.
//
// The traversal is depth-first, leftmost child first, and deterministic for a
// fixed resolution history, so search trajectories are reproducible.
package space

import (
	"fmt"
	"strings"

	"github.com/gomlx/deeparchitect/graph"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Kind tags the module variants. Dispatch goes through the Module interface;
// Kind exists so tools (printers, analyzers) can switch on the closed set of
// variants without reflection.
type Kind int

const (
	KindLeaf Kind = iota
	KindConcat
	KindOptional
	KindOr
	KindRepeat
	KindRepeatTied
	KindResidual
	KindHyperparams
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "Leaf"
	case KindConcat:
		return "Concat"
	case KindOptional:
		return "Optional"
	case KindOr:
		return "Or"
	case KindRepeat:
		return "Repeat"
	case KindRepeatTied:
		return "RepeatTied"
	case KindResidual:
		return "Residual"
	case KindHyperparams:
		return "Hyperparams"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Module is a node of a search-space tree: a unit with declared
// hyperparameters that, once they are all resolved, compiles into
// computation-graph fragments (leaf modules) or into the chained fragments of
// its children (composite modules).
//
// All implementations in this package are single-input/single-output;
// multi-input wiring is a future extension. User-defined composites are
// welcome as long as they honor the contract documented on each method.
type Module interface {
	// Unresolved returns one still-unresolved Hyperparameter reachable from
	// this module -- its own if it has not unfolded yet, otherwise recursively
	// from its current children, depth-first and leftmost child first -- or
	// nil when the whole subtree is ready to compile.
	//
	// Composite modules unfold inside this call, the first time it runs after
	// their own hyperparameter resolved. Unfolding is one-directional.
	Unresolved() *Hyperparameter

	// Compile emits the module's output fragment given its input fragment,
	// recording resolved state under a fresh instance name in scope.
	//
	// It fails with *NotFullyResolvedError if Unresolved is not nil, and with
	// *graph.FragmentShapeError if the (fully resolved) wiring turns out
	// shape-incompatible -- the latter is only detectable here, since shapes
	// exist only after resolution.
	Compile(input *graph.Node, scope *Scope) (*graph.Node, error)

	// ReprProgram returns a nested, human-readable description of the
	// (possibly partially resolved) subtree, for diagnostics. It never fails,
	// resolved or not. The format is not machine-parseable.
	ReprProgram() string

	// Kind of this module.
	Kind() Kind
}

// notResolvedCheck returns a *NotFullyResolvedError if m still has unresolved
// hyperparameters. Every Compile implementation calls this first.
func notResolvedCheck(m Module, typeName string) error {
	if hp := m.Unresolved(); hp != nil {
		return errors.WithStack(&NotFullyResolvedError{Module: typeName, Hyperparameter: hp.Name()})
	}
	return nil
}

// catchFragmentErrors runs fn, converting fragment-building panics
// (*graph.FragmentShapeError and friends) into a returned error.
func catchFragmentErrors(fn func()) error {
	return exceptions.TryCatch[error](fn)
}

// indentLines prefixes every line of s with one indentation level, for nested
// ReprProgram output.
func indentLines(s string) string {
	lines := strings.Split(s, "\n")
	for ii, line := range lines {
		lines[ii] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// reprHeader formats `name [hp1, hp2, ...]`, using the Hyperparameter String
// format (value if resolved, candidate set if not).
func reprHeader(name string, hps []*Hyperparameter) string {
	if len(hps) == 0 {
		return name
	}
	parts := make([]string, 0, len(hps))
	for _, hp := range hps {
		parts = append(parts, hp.String())
	}
	return fmt.Sprintf("%s [%s]", name, strings.Join(parts, ", "))
}

// CompileFn builds a leaf module's output fragment from its input fragment and
// the leaf's resolved hyperparameter values (keyed by hyperparameter name).
// It may panic with *graph.FragmentShapeError; Leaf.Compile converts that to
// an error.
type CompileFn func(input *graph.Node, values map[string]any) *graph.Node

// Leaf is the leaf-compute module variant: its hyperparameters select numeric
// shape/initialization choices and it compiles directly to graph fragments
// through its CompileFn. The layers package provides the concrete
// constructors (Affine, Activation, Conv2D, ...).
type Leaf struct {
	typeName  string
	hps       []*Hyperparameter
	compileFn CompileFn
}

// NewLeaf creates a leaf module. typeName is used for scope instance naming
// and diagnostics; hps are the declared hyperparameters in traversal order.
func NewLeaf(typeName string, hps []*Hyperparameter, compileFn CompileFn) *Leaf {
	return &Leaf{typeName: typeName, hps: hps, compileFn: compileFn}
}

// TypeName returns the leaf's type name (e.g. "affine").
func (m *Leaf) TypeName() string { return m.typeName }

// Hyperparameters returns the declared hyperparameters, in traversal order.
func (m *Leaf) Hyperparameters() []*Hyperparameter { return m.hps }

// Unresolved implements Module.
func (m *Leaf) Unresolved() *Hyperparameter {
	for _, hp := range m.hps {
		if !hp.IsResolved() {
			return hp
		}
	}
	return nil
}

// Compile implements Module.
func (m *Leaf) Compile(input *graph.Node, scope *Scope) (output *graph.Node, err error) {
	if err = notResolvedCheck(m, m.typeName); err != nil {
		return nil, err
	}
	instance, err := scope.NewInstance(m.typeName)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(m.hps))
	for _, hp := range m.hps {
		values[hp.Name()] = hp.Value()
		scope.Set(instance, hp.Name(), hp.Value())
	}
	err = catchFragmentErrors(func() {
		output = m.compileFn(input, values)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "compiling %s", instance)
	}
	return output, nil
}

// ReprProgram implements Module.
func (m *Leaf) ReprProgram() string {
	return reprHeader(m.typeName, m.hps)
}

// Kind implements Module.
func (m *Leaf) Kind() Kind { return KindLeaf }
