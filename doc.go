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

// Package pchain provides a process-wide registry of purgeable providers.
//
// A provider is anything that holds reclaimable resources: an allocator
// free list, a cache, a pool of buffers. Providers register themselves
// with the registry, and a single call to CleanupAll asks every one of
// them to give back what it can.
//
// # Design
//
// The core of pchain is a read-mostly global snapshot (state). The
// snapshot holds four things:
//
//   - Config: the logger, hooks, observer, name resolver and strictness
//     used for new registries.
//
//   - Builder: constructs the registry from Config and an optional
//     extension value (SetExt). The default builder returns a
//     registry.Registry.
//
//   - Ext: an opaque value handed to the builder, e.g. extra hooks.
//
//   - Registry: the current registry, or nil when none exists.
//
// The snapshot is published through an atomic pointer. Readers never
// lock; creation, reference counting and teardown are serialized by one
// mutex.
//
// # Lifetime
//
// The registry is created lazily by the first Acquire or Instance call.
// Every module that needs it holds a Token; when the last Token is
// released the registry destroys its remaining providers in reverse
// registration order, fires its destroyed hook and disappears. A later
// Acquire builds a fresh one and fires the created hook again.
//
// During teardown the registry lock is not held while a provider is
// destroyed, so Destroy may deregister itself or others, and Instance
// keeps returning the dying registry.
//
// # Usage
//
//	tok := pchain.MustAcquire()
//	defer tok.Release()
//
//	h, err := pchain.Register(myFreeList)
//	...
//	reclaimed := pchain.CleanupAll()
//	...
//	_ = pchain.Deregister(h)
//
// Providers that want to manage their own membership can embed link.Link.
//
// # Strict mode
//
// Deregistering an unknown handle or releasing more references than were
// taken is a caller bug. It is always logged and returned as an error;
// with Config.Strict set (the default under the pchain_debug build tag)
// it panics instead.
package pchain
