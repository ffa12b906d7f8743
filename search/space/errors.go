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
)

// AlreadyResolvedError is returned by Hyperparameter.Resolve when the
// hyperparameter was already resolved. Resolution happens exactly once, so a
// second call is a searcher/driver bug -- even when the value is unchanged.
type AlreadyResolvedError struct {
	// Name of the hyperparameter.
	Name string

	// Previous value it was resolved to.
	Previous any

	// Value of the rejected second resolution.
	Value any
}

// Error implements the error interface.
func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("hyperparameter %q already resolved to %v, cannot resolve again (to %v)",
		e.Name, e.Previous, e.Value)
}

// InvalidValueError is returned by Hyperparameter.Resolve when the value is
// not one of the declared candidates. It guards against silent corruption of
// the search space.
type InvalidValueError struct {
	// Name of the hyperparameter.
	Name string

	// Value that was rejected.
	Value any

	// Values are the declared candidates.
	Values []any
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("value %v is not a candidate of hyperparameter %q (candidates: %v)",
		e.Value, e.Name, e.Values)
}

// NotFullyResolvedError is returned by Module.Compile when the module's
// subtree still has unresolved hyperparameters. It indicates a searcher or
// driver bug: compilation is only meaningful after Unresolved returns nil.
type NotFullyResolvedError struct {
	// Module type name of the module whose compilation was attempted.
	Module string

	// Hyperparameter is the name of one still-unresolved hyperparameter.
	Hyperparameter string
}

// Error implements the error interface.
func (e *NotFullyResolvedError) Error() string {
	return fmt.Sprintf("cannot compile %s: hyperparameter %q is still unresolved",
		e.Module, e.Hyperparameter)
}

// NamingCollisionError is returned by Scope.Register when the instance name is
// already taken within the scope.
type NamingCollisionError struct {
	// Instance name that collided.
	Instance string
}

// Error implements the error interface.
func (e *NamingCollisionError) Error() string {
	return fmt.Sprintf("module instance name %q already registered in scope", e.Instance)
}
