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

	"github.com/gomlx/deeparchitect/types/xslices"
	"github.com/pkg/errors"
)

// Keys under which a Hyperparams module records its resolved names and values
// in the Scope. These two keys are the stable part of the Scope boundary:
// evaluators may rely on them to retrieve search-space-external
// hyperparameters (learning rate, batch size, ...). Other keys are
// module-internal bookkeeping with no stability guarantee.
const (
	HyperpNamesKey = "hyperp_names"
	HyperpValsKey  = "hyperp_vals"
)

// Scope is the namespace shared by all module instances of one search-space
// tree. It maps instance names (type name plus a monotonic per-type counter,
// e.g. "affine-0") to that instance's resolved internal state.
//
// One Scope is created per tree and populated incrementally as modules
// compile. After compilation it is effectively read-only, but it may be read
// mid-compilation by code that needs partial state -- a deliberate, narrow
// encapsulation break, formalized by Lookup.
//
// A Scope may be deliberately shared across trees when the user wants state
// tied between them; in that case writes must be serialized by the caller.
type Scope struct {
	counters map[string]int
	entries  map[string]map[string]any

	// instance names in registration order.
	order []string
}

// NewScope returns an empty Scope.
func NewScope() *Scope {
	return &Scope{
		counters: make(map[string]int),
		entries:  make(map[string]map[string]any),
	}
}

// NewInstance generates the next deterministic instance name for the given
// module type name ("affine-0", "affine-1", ...) and registers it.
func (s *Scope) NewInstance(typeName string) (string, error) {
	count := s.counters[typeName]
	s.counters[typeName] = count + 1
	instance := fmt.Sprintf("%s-%d", typeName, count)
	if err := s.Register(instance); err != nil {
		return "", err
	}
	return instance, nil
}

// Register claims the given instance name. It fails with
// *NamingCollisionError if the name is already taken.
//
// Most modules should use NewInstance instead; Register is for user-defined
// modules with their own naming.
func (s *Scope) Register(instance string) error {
	if _, found := s.entries[instance]; found {
		return errors.WithStack(&NamingCollisionError{Instance: instance})
	}
	s.entries[instance] = make(map[string]any)
	s.order = append(s.order, instance)
	return nil
}

// Set records a key/value under the given instance. The instance must have
// been registered.
func (s *Scope) Set(instance, key string, value any) {
	entry, found := s.entries[instance]
	if !found {
		entry = make(map[string]any)
		s.entries[instance] = entry
		s.order = append(s.order, instance)
	}
	entry[key] = value
}

// Lookup retrieves the value recorded under (instance, key), and whether it
// was found. This is the supported way to introspect another module's state;
// see HyperpNamesKey and HyperpValsKey for the stable keys.
func (s *Scope) Lookup(instance, key string) (value any, found bool) {
	entry, found := s.entries[instance]
	if !found {
		return nil, false
	}
	value, found = entry[key]
	return
}

// Instances returns all registered instance names, in registration order.
func (s *Scope) Instances() []string {
	return xslices.Copy(s.order)
}

// Enumerate calls fn for every (instance, key, value) recorded, instances in
// registration order and keys sorted within each instance.
func (s *Scope) Enumerate(fn func(instance, key string, value any)) {
	for _, instance := range s.order {
		entry := s.entries[instance]
		for _, key := range xslices.SortedKeys(entry) {
			fn(instance, key, entry[key])
		}
	}
}
