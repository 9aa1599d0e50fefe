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

import "strconv"

// Purgeable is a unit of registry-tracked state that can give back
// internal slack on request.
type Purgeable interface {
	// Purge reclaims whatever the provider can release without being
	// destroyed and reports how many items it reclaimed. The registry only
	// sums the result; its unit is provider-defined.
	//
	// Purge is called with the registry lock held and must not call back
	// into the registry.
	Purge() uint64
}

// Destroyer is implemented by providers that own resources which must be
// released when the registry is torn down.
//
// Destroy is called without the registry lock held. It is expected to
// deregister the provider (typically through link.Link.Leave); if it does
// not, the registry removes it afterwards.
type Destroyer interface {
	Destroy()
}

// Namer gives a provider a stable, type-level name used in logs, metrics
// and diagnostics. Implementations must be cheap and side-effect free.
type Namer interface {
	// EntityName returns the canonical name for this kind of provider.
	EntityName() string
}

// Handle is the stable arena address of a single registration.
// The zero Handle never refers to a registration.
type Handle struct {
	index uint32
	gen   uint32
}

// NewHandle builds a Handle from an arena slot index and the slot's
// generation. Generations start at 1.
func NewHandle(index, gen uint32) Handle {
	return Handle{index: index, gen: gen}
}

// Index returns the arena slot index.
func (h Handle) Index() uint32 { return h.index }

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint32 { return h.gen }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// String renders the handle as "index@generation".
func (h Handle) String() string {
	return strconv.FormatUint(uint64(h.index), 10) + "@" + strconv.FormatUint(uint64(h.gen), 10)
}

// Entry is a single registration in a Registry snapshot.
type Entry struct {
	// Handle addresses the registration.
	Handle Handle
	// Name is the resolved provider name.
	Name string
	// Provider is the registered value.
	Provider Purgeable
}
