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

	"github.com/gomlx/deeparchitect/types/xslices"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Hyperparameter is a named choice among a discrete, ordered set of candidate
// values. It transitions from unresolved to resolved exactly once, when a
// searcher assigns it one of its candidates.
//
// Candidate values must be comparable with == (ints, strings, bools, float64
// and similar).
//
// Hyperparameters can be tied (see Tie): resolving any member of a tied group
// resolves every member to the same value. RepeatTied uses this to force all
// its copies to share choices.
type Hyperparameter struct {
	name     string
	values   []any
	resolved bool
	value    any
	ties     []*Hyperparameter
}

// NewHyperparameter creates an unresolved hyperparameter with the given
// candidate values. It panics if no candidates are given -- an empty choice
// set makes the search space empty.
func NewHyperparameter(name string, values []any) *Hyperparameter {
	if len(values) == 0 {
		exceptions.Panicf("hyperparameter %q created with no candidate values", name)
	}
	return &Hyperparameter{name: name, values: xslices.Copy(values)}
}

// Name of the hyperparameter. Unique within its owning module instance.
func (h *Hyperparameter) Name() string { return h.name }

// Values returns a copy of the ordered candidate values.
func (h *Hyperparameter) Values() []any { return xslices.Copy(h.values) }

// IsResolved returns whether the hyperparameter has been assigned a value.
// It is a pure query, with no side effects.
func (h *Hyperparameter) IsResolved() bool { return h.resolved }

// Value returns the resolved value. It panics if the hyperparameter is still
// unresolved -- check IsResolved first.
func (h *Hyperparameter) Value() any {
	if !h.resolved {
		exceptions.Panicf("hyperparameter %q read before being resolved", h.name)
	}
	return h.value
}

// Resolve assigns value to the hyperparameter.
//
// It fails with *AlreadyResolvedError if the hyperparameter was resolved
// before (even to the same value), and with *InvalidValueError if value is not
// one of the declared candidates.
//
// Resolving a hyperparameter fans out to every hyperparameter tied to it.
// It does not trigger any module unfolding: that happens in the owning
// module's Unresolved, driven by the searcher loop.
func (h *Hyperparameter) Resolve(value any) error {
	if h.resolved {
		return errors.WithStack(&AlreadyResolvedError{
			Name: h.name, Previous: h.value, Value: value})
	}
	if xslices.IndexOf(h.values, value) < 0 {
		return errors.WithStack(&InvalidValueError{
			Name: h.name, Value: value, Values: h.Values()})
	}
	h.resolved = true
	h.value = value
	for _, tied := range h.ties {
		if tied.resolved {
			continue
		}
		if err := tied.Resolve(value); err != nil {
			return errors.WithMessagef(err, "propagating value %v to tied hyperparameter %q", value, tied.name)
		}
	}
	return nil
}

// Tie links h and other so that resolving either one resolves both to the same
// value. If one of them is already resolved, the value propagates immediately.
//
// Both hyperparameters should have the same candidate set, otherwise
// propagation may fail with *InvalidValueError at resolution time.
func (h *Hyperparameter) Tie(other *Hyperparameter) error {
	if h == other {
		return nil
	}
	if xslices.IndexOf(h.ties, other) < 0 {
		h.ties = append(h.ties, other)
	}
	if xslices.IndexOf(other.ties, h) < 0 {
		other.ties = append(other.ties, h)
	}
	if h.resolved && !other.resolved {
		return other.Resolve(h.value)
	}
	if other.resolved && !h.resolved {
		return h.Resolve(other.value)
	}
	return nil
}

// String implements fmt.Stringer: `name=value` once resolved, otherwise
// `name in {candidates...}`.
func (h *Hyperparameter) String() string {
	if h.resolved {
		return fmt.Sprintf("%s=%v", h.name, h.value)
	}
	parts := xslices.Map(h.values, func(v any) string { return fmt.Sprintf("%v", v) })
	return fmt.Sprintf("%s in {%s}", h.name, strings.Join(parts, ", "))
}
