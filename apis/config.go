/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package apis

import "log/slog"

// Config carries the knobs a Builder uses to construct a Registry.
// It is passed by value; nil collaborators are replaced with defaults
// by the builder.
type Config struct {
	// Logger receives lifecycle and invariant-violation records.
	Logger *slog.Logger

	// Hooks is notified when a registry is created and destroyed.
	Hooks Hooks

	// Observer receives per-provider events.
	Observer Observer

	// Resolver names providers for logs, metrics and Entries.
	Resolver Resolver

	// Strict turns invariant violations (reference count underflow,
	// deregistration of an unknown handle) into panics instead of errors.
	Strict bool

	// Capacity pre-sizes the provider arena.
	Capacity int
}
