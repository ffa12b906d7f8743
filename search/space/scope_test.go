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

func TestScopeInstanceNaming(t *testing.T) {
	scope := NewScope()
	first, err := scope.NewInstance("affine")
	require.NoError(t, err)
	second, err := scope.NewInstance("affine")
	require.NoError(t, err)
	other, err := scope.NewInstance("dropout")
	require.NoError(t, err)

	assert.Equal(t, "affine-0", first)
	assert.Equal(t, "affine-1", second)
	assert.Equal(t, "dropout-0", other)
	assert.Equal(t, []string{"affine-0", "affine-1", "dropout-0"}, scope.Instances())
}

func TestScopeRegisterCollision(t *testing.T) {
	scope := NewScope()
	require.NoError(t, scope.Register("my-module"))
	err := scope.Register("my-module")
	require.Error(t, err)
	var collisionErr *NamingCollisionError
	require.True(t, errors.As(err, &collisionErr))
	assert.Equal(t, "my-module", collisionErr.Instance)
}

func TestScopeLookupAndEnumerate(t *testing.T) {
	scope := NewScope()
	instance, err := scope.NewInstance("affine")
	require.NoError(t, err)
	scope.Set(instance, "units", 64)
	scope.Set(instance, "initializer", "xavier")

	value, found := scope.Lookup(instance, "units")
	require.True(t, found)
	assert.Equal(t, 64, value)

	_, found = scope.Lookup(instance, "absent")
	assert.False(t, found)
	_, found = scope.Lookup("no-such-instance", "units")
	assert.False(t, found)

	var seen []string
	scope.Enumerate(func(instance, key string, value any) {
		seen = append(seen, instance+"/"+key)
	})
	// Keys sorted within the instance.
	assert.Equal(t, []string{"affine-0/initializer", "affine-0/units"}, seen)
}
