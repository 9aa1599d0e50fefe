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

// Registry tracks live providers in registration order and owns their
// teardown. Implementations must be safe for concurrent use.
type Registry interface {
	// ID returns the unique id of this registry instance.
	ID() string

	// Register appends p to the tail of the chain. A pointer provider is
	// rejected while already registered; pointers to zero-size values and
	// non-pointer providers are never treated as duplicates.
	Register(p Purgeable) (Handle, error)
	// Deregister removes the registration addressed by h, preserving the
	// relative order of the remaining providers.
	Deregister(h Handle) error
	// Provider returns the provider registered under h.
	Provider(h Handle) (Purgeable, bool)

	// First returns the handle of the earliest registration still present.
	First() (Handle, bool)
	// Next returns the registration following h in the chain.
	Next(h Handle) (Handle, bool)
	// Entries returns a chain-ordered snapshot for diagnostics.
	Entries() []Entry
	// Count returns the number of registered providers.
	Count() int

	// CleanupAll asks every provider to purge and returns the sum of the
	// reclaimed amounts. Chain membership is unchanged.
	CleanupAll() uint64

	// IncRef increments the reference count and returns the new value.
	IncRef() (uint32, error)
	// DecRef decrements the reference count and returns the new value.
	// It never goes below zero.
	DecRef() (uint32, error)
	// Refs returns the current reference count.
	Refs() uint32

	// Teardown destroys all remaining providers, most recent first, and
	// closes the registry. It is idempotent: concurrent callers return
	// once the first call has finished.
	Teardown()
	// Alive reports whether Teardown has not run yet.
	Alive() bool
}
