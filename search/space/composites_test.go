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
	"testing"

	"github.com/gomlx/deeparchitect/graph"
	"github.com/gomlx/deeparchitect/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLeaf is a dense leaf with one "units" hyperparameter.
func testLeaf(name string, units ...any) *Leaf {
	hp := NewHyperparameter("units", units)
	return NewLeaf(name, []*Hyperparameter{hp},
		func(input *graph.Node, values map[string]any) *graph.Node {
			return graph.Dense(input, values["units"].(int), "xavier")
		})
}

// testInput creates a fresh graph with one [4, 8] input.
func testInput(t *testing.T) (*graph.Graph, *graph.Node) {
	g := graph.New(t.Name())
	return g, g.Input(shapes.Make(dtypes.Float32, 4, 8))
}

// resolveToFirst drives m to full resolution, always picking the first
// candidate, and returns the number of resolution steps. It fails the test if
// the tree doesn't resolve within a sane bound.
func resolveToFirst(t *testing.T, m Module) int {
	steps := 0
	for hp := m.Unresolved(); hp != nil; hp = m.Unresolved() {
		require.Less(t, steps, 1000, "tree did not reach full resolution")
		require.NoError(t, hp.Resolve(hp.Values()[0]))
		steps++
	}
	return steps
}

func TestConcat(t *testing.T) {
	root := NewConcat(testLeaf("leafa", 1, 2), testLeaf("leafb", 10, 20))
	steps := resolveToFirst(t, root)
	assert.Equal(t, 2, steps)

	g, input := testInput(t)
	scope := NewScope()
	output, err := root.Compile(input, scope)
	require.NoError(t, err)
	assert.True(t, output.Shape().Equal(shapes.Make(dtypes.Float32, 4, 10)))
	// Input plus two dense fragments.
	assert.Equal(t, 3, g.NumNodes())

	units, found := scope.Lookup("leafa-0", "units")
	require.True(t, found)
	assert.Equal(t, 1, units)
	units, found = scope.Lookup("leafb-0", "units")
	require.True(t, found)
	assert.Equal(t, 10, units)
}

func TestCompileBeforeResolutionFails(t *testing.T) {
	root := NewConcat(testLeaf("leafa", 1, 2))
	_, input := testInput(t)
	_, err := root.Compile(input, NewScope())
	require.Error(t, err)
	var notResolvedErr *NotFullyResolvedError
	require.True(t, errors.As(err, &notResolvedErr))
	assert.Equal(t, "units", notResolvedErr.Hyperparameter)
}

func TestOptionalSkip(t *testing.T) {
	root := NewOptional(testLeaf("leafa", 1, 2))
	hp := root.Unresolved()
	require.Same(t, root.IncludeHyperparameter(), hp)
	require.NoError(t, hp.Resolve(false))

	// The skipped leaf contributes no hyperparameters.
	assert.Nil(t, root.Unresolved())

	_, input := testInput(t)
	output, err := root.Compile(input, NewScope())
	require.NoError(t, err)
	assert.Equal(t, graph.IdentityOp, output.Type())
	assert.True(t, output.Shape().Equal(input.Shape()))
}

func TestOptionalInclude(t *testing.T) {
	root := NewOptional(testLeaf("leafa", 1, 2))
	require.NoError(t, root.Unresolved().Resolve(true))
	assert.Equal(t, 1, resolveToFirst(t, root))

	_, input := testInput(t)
	output, err := root.Compile(input, NewScope())
	require.NoError(t, err)
	assert.Equal(t, graph.DenseOp, output.Type())
	assert.True(t, output.Shape().Equal(shapes.Make(dtypes.Float32, 4, 1)))
}

func TestOrSelectsExactlyOne(t *testing.T) {
	moduleX := testLeaf("modulex", 1, 2)
	moduleY := testLeaf("moduley", 10, 20)
	root := NewOr(moduleX, moduleY)

	hp := root.Unresolved()
	require.Same(t, root.ChoiceHyperparameter(), hp)
	require.NoError(t, hp.Resolve(1))

	// Only moduleY's hyperparameter remains; moduleX never unfolds.
	steps := resolveToFirst(t, root)
	assert.Equal(t, 1, steps)
	assert.False(t, moduleX.Hyperparameters()[0].IsResolved())
	require.Same(t, moduleY, root.Selected())

	g, input := testInput(t)
	scope := NewScope()
	output, err := root.Compile(input, scope)
	require.NoError(t, err)
	assert.True(t, output.Shape().Equal(shapes.Make(dtypes.Float32, 4, 10)))
	// Input plus moduleY's fragment only.
	assert.Equal(t, 2, g.NumNodes())
	_, found := scope.Lookup("modulex-0", "units")
	assert.False(t, found)
}

func TestRepeatZeroCountIsIdentity(t *testing.T) {
	root := NewRepeat(func() Module { return testLeaf("leafa", 1, 2) }, []any{0, 1, 2})
	require.NoError(t, root.Unresolved().Resolve(0))
	assert.Nil(t, root.Unresolved())
	assert.Empty(t, root.Children())

	_, input := testInput(t)
	output, err := root.Compile(input, NewScope())
	require.NoError(t, err)
	assert.Equal(t, graph.IdentityOp, output.Type())
	assert.True(t, output.Shape().Equal(input.Shape()))
}

func TestRepeatIndependentCopies(t *testing.T) {
	root := NewRepeat(func() Module { return testLeaf("leafa", 8, 16) }, []any{2})
	require.NoError(t, root.Unresolved().Resolve(2))

	// Each copy resolves independently.
	require.NoError(t, root.Unresolved().Resolve(8))
	require.NoError(t, root.Unresolved().Resolve(16))
	assert.Nil(t, root.Unresolved())

	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, 8, children[0].(*Leaf).Hyperparameters()[0].Value())
	assert.Equal(t, 16, children[1].(*Leaf).Hyperparameters()[0].Value())
}

func TestRepeatTied(t *testing.T) {
	root := NewRepeatTied(func() Module { return testLeaf("leafa", 8, 16) },
		[]any{1, 2, 4, 8, 16, 32})
	require.NoError(t, root.Unresolved().Resolve(4))

	// Resolving the tied hyperparameter on one copy resolves all copies.
	hp := root.Unresolved()
	require.NotNil(t, hp)
	children := root.Children()
	require.Len(t, children, 4)
	require.NoError(t, hp.Resolve(16))
	assert.Nil(t, root.Unresolved())
	for _, child := range children {
		childHp := child.(*Leaf).Hyperparameters()[0]
		assert.True(t, childHp.IsResolved())
		assert.Equal(t, 16, childHp.Value())
	}

	// All four copies compile to their own fragment.
	g, input := testInput(t)
	output, err := root.Compile(input, NewScope())
	require.NoError(t, err)
	assert.True(t, output.Shape().Equal(shapes.Make(dtypes.Float32, 4, 16)))
	assert.Equal(t, 5, g.NumNodes())
}

func TestResidual(t *testing.T) {
	// Preserving the input dimension works.
	root := NewResidual(testLeaf("leafa", 8))
	resolveToFirst(t, root)
	_, input := testInput(t)
	output, err := root.Compile(input, NewScope())
	require.NoError(t, err)
	assert.Equal(t, graph.AddOp, output.Type())
	assert.True(t, output.Shape().Equal(input.Shape()))

	// Changing the dimension surfaces as a shape error at compile time.
	mismatched := NewResidual(testLeaf("leafa", 4))
	resolveToFirst(t, mismatched)
	_, input = testInput(t)
	_, err = mismatched.Compile(input, NewScope())
	require.Error(t, err)
	var shapeErr *graph.FragmentShapeError
	require.True(t, errors.As(err, &shapeErr))
}

func TestHyperparamsModule(t *testing.T) {
	root := NewConcat(
		testLeaf("leafa", 8),
		NewHyperparams(
			NamedValues{Name: "learning_rate", Values: []any{1e-2, 1e-3}},
			NamedValues{Name: "batch_size", Values: []any{32, 64}},
		),
	)
	assert.Equal(t, 3, resolveToFirst(t, root))

	_, input := testInput(t)
	scope := NewScope()
	_, err := root.Compile(input, scope)
	require.NoError(t, err)

	names, found := scope.Lookup("hyperparams-0", HyperpNamesKey)
	require.True(t, found)
	assert.Equal(t, []string{"learning_rate", "batch_size"}, names)
	values, found := scope.Lookup("hyperparams-0", HyperpValsKey)
	require.True(t, found)
	assert.Equal(t, []any{1e-2, 32}, values)
}

func TestReprProgram(t *testing.T) {
	root := NewConcat(
		testLeaf("leafa", 1, 2),
		NewOptional(testLeaf("leafb", 10, 20)),
		NewRepeatTied(func() Module { return testLeaf("leafc", 5) }, []any{0, 1}),
	)

	before := root.ReprProgram()
	assert.Contains(t, before, "Concat")
	assert.Contains(t, before, "in {")

	resolveToFirst(t, root)
	after := root.ReprProgram()
	// Post-resolution, only resolved values are listed.
	assert.NotContains(t, after, "in {")
	assert.Contains(t, after, "units=1")
	assert.Contains(t, after, "include=true")
	assert.Contains(t, after, "count=0")
}
