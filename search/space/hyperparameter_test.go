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

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHyperparameterResolve(t *testing.T) {
	hp := NewHyperparameter("units", []any{64, 128, 256})
	assert.False(t, hp.IsResolved())
	assert.Equal(t, []any{64, 128, 256}, hp.Values())

	// Value outside the candidate set.
	err := hp.Resolve(101)
	require.Error(t, err)
	var invalidErr *InvalidValueError
	require.True(t, errors.As(err, &invalidErr))
	assert.Equal(t, "units", invalidErr.Name)
	assert.False(t, hp.IsResolved())

	require.NoError(t, hp.Resolve(128))
	assert.True(t, hp.IsResolved())
	assert.Equal(t, 128, hp.Value())

	// Resolving twice always fails, even with the same value.
	for _, value := range []any{128, 64} {
		err = hp.Resolve(value)
		require.Error(t, err)
		var alreadyErr *AlreadyResolvedError
		require.True(t, errors.As(err, &alreadyErr))
		assert.Equal(t, 128, alreadyErr.Previous)
	}
	assert.Equal(t, 128, hp.Value())
}

func TestHyperparameterValueBeforeResolve(t *testing.T) {
	hp := NewHyperparameter("units", []any{64})
	require.Panics(t, func() { hp.Value() })
}

func TestHyperparameterEmptyCandidates(t *testing.T) {
	require.Panics(t, func() { NewHyperparameter("units", nil) })
}

func TestHyperparameterTie(t *testing.T) {
	a := NewHyperparameter("units", []any{64, 128})
	b := NewHyperparameter("units", []any{64, 128})
	c := NewHyperparameter("units", []any{64, 128})
	require.NoError(t, a.Tie(b))
	require.NoError(t, b.Tie(c))

	require.NoError(t, b.Resolve(64))
	assert.True(t, a.IsResolved())
	assert.True(t, c.IsResolved())
	assert.Equal(t, 64, a.Value())
	assert.Equal(t, 64, c.Value())

	// Tying an unresolved hyperparameter to an already resolved one
	// propagates immediately.
	d := NewHyperparameter("units", []any{64, 128})
	require.NoError(t, d.Tie(a))
	assert.Equal(t, 64, d.Value())
}

func TestHyperparameterString(t *testing.T) {
	hp := NewHyperparameter("kind", []any{"relu", "tanh"})
	assert.Equal(t, "kind in {relu, tanh}", hp.String())
	require.NoError(t, hp.Resolve("relu"))
	assert.Equal(t, "kind=relu", hp.String())
}
