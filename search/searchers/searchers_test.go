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

package searchers

import (
	"testing"

	"github.com/gomlx/deeparchitect/search/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomIsReproducible(t *testing.T) {
	hp := space.NewHyperparameter("units", []any{1, 2, 4, 8, 16})

	first := NewRandom(42)
	second := NewRandom(42)
	for trial := 0; trial < 20; trial++ {
		assert.Equal(t, first.PickValue(hp), second.PickValue(hp))
	}

	// Picks are always valid candidates.
	searcher := NewRandom(17)
	for trial := 0; trial < 100; trial++ {
		assert.Contains(t, hp.Values(), searcher.PickValue(hp))
	}
}

func TestEpsilonGreedyPrefersUnexplored(t *testing.T) {
	hp := space.NewHyperparameter("units", []any{1, 2, 3})
	searcher := NewEpsilonGreedy(0, 42) // Pure exploitation.

	// Before any observation every candidate is unexplored: the first in
	// declaration order wins.
	assert.Equal(t, 1, searcher.PickValue(hp))

	searcher.Observe([]Choice{{Hyperparameter: "units", Value: 1}}, 10.0)
	assert.Equal(t, 2, searcher.PickValue(hp))
	searcher.Observe([]Choice{{Hyperparameter: "units", Value: 2}}, 5.0)
	assert.Equal(t, 3, searcher.PickValue(hp))
}

func TestEpsilonGreedyExploitsBestMean(t *testing.T) {
	hp := space.NewHyperparameter("units", []any{1, 2, 3})
	searcher := NewEpsilonGreedy(0, 42)

	searcher.Observe([]Choice{{Hyperparameter: "units", Value: 1}}, 2.0)
	searcher.Observe([]Choice{{Hyperparameter: "units", Value: 2}}, 8.0)
	searcher.Observe([]Choice{{Hyperparameter: "units", Value: 3}}, 4.0)
	assert.Equal(t, 2, searcher.PickValue(hp))

	// Means, not sums: one great score beats many mediocre ones.
	searcher.Observe([]Choice{{Hyperparameter: "units", Value: 3}}, 20.0)
	assert.Equal(t, 3, searcher.PickValue(hp))

	// Statistics are keyed per hyperparameter name: a different
	// hyperparameter with overlapping values starts unexplored.
	other := space.NewHyperparameter("filters", []any{1, 2, 3})
	assert.Equal(t, 1, searcher.PickValue(other))
}

func TestEpsilonGreedyExplores(t *testing.T) {
	hp := space.NewHyperparameter("units", []any{1, 2})
	searcher := NewEpsilonGreedy(1, 42) // Pure exploration.
	searcher.Observe([]Choice{{Hyperparameter: "units", Value: 1}}, 100.0)
	searcher.Observe([]Choice{{Hyperparameter: "units", Value: 2}}, 0.0)

	seen := make(map[any]bool)
	for trial := 0; trial < 100; trial++ {
		seen[searcher.PickValue(hp)] = true
	}
	require.True(t, seen[1])
	require.True(t, seen[2])
}

func TestChoiceString(t *testing.T) {
	choice := Choice{Hyperparameter: "units", Value: 64}
	assert.Equal(t, "units=64", choice.String())
}
