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

package xslices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtAndLast(t *testing.T) {
	slice := []int{10, 20, 30}
	assert.Equal(t, 10, At(slice, 0))
	assert.Equal(t, 30, At(slice, -1))
	assert.Equal(t, 20, At(slice, -2))
	assert.Equal(t, 30, Last(slice))
}

func TestCopy(t *testing.T) {
	slice := []int{1, 2, 3}
	duplicate := Copy(slice)
	duplicate[0] = 7
	assert.Equal(t, []int{1, 2, 3}, slice)
	assert.Nil(t, Copy([]int(nil)))
}

func TestMap(t *testing.T) {
	assert.Equal(t, []int{2, 4, 6},
		Map([]int{1, 2, 3}, func(e int) int { return 2 * e }))
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, Keys(m))
}

func TestIndexOf(t *testing.T) {
	slice := []string{"x", "y", "z"}
	assert.Equal(t, 1, IndexOf(slice, "y"))
	assert.Equal(t, -1, IndexOf(slice, "w"))
}
