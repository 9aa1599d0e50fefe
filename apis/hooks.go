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

// Hooks receives the registry lifecycle notifications. Each method is
// called exactly once per Registry instance.
type Hooks interface {
	// TableCreated fires when a registry is constructed, before any
	// provider can register with it.
	TableCreated()
	// TableDestroyed fires after a registry has destroyed its last
	// provider during teardown.
	TableDestroyed()
}

// HookFuncs adapts plain functions to Hooks. Nil fields are skipped.
type HookFuncs struct {
	Created   func()
	Destroyed func()
}

// TableCreated implements Hooks.
func (h HookFuncs) TableCreated() {
	if h.Created != nil {
		h.Created()
	}
}

// TableDestroyed implements Hooks.
func (h HookFuncs) TableDestroyed() {
	if h.Destroyed != nil {
		h.Destroyed()
	}
}

// MultiHooks fans notifications out to several Hooks in order.
type MultiHooks []Hooks

// TableCreated implements Hooks.
func (m MultiHooks) TableCreated() {
	for _, h := range m {
		if h != nil {
			h.TableCreated()
		}
	}
}

// TableDestroyed implements Hooks. Hooks are notified in reverse order.
func (m MultiHooks) TableDestroyed() {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i] != nil {
			m[i].TableDestroyed()
		}
	}
}

// Observer receives per-provider events. It is never called with the
// registry lock held. Registered and deregistered events are delivered
// one at a time in the order the chain changed, so an observer must not
// register or deregister providers itself.
type Observer interface {
	ProviderRegistered(name string)
	ProviderDeregistered(name string)
	// ProviderPurged reports the amount a single provider reclaimed
	// during CleanupAll.
	ProviderPurged(name string, n uint64)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) ProviderRegistered(string) {}

func (NopObserver) ProviderDeregistered(string) {}

func (NopObserver) ProviderPurged(string, uint64) {}

// NopHooks ignores lifecycle notifications.
type NopHooks struct{}

func (NopHooks) TableCreated() {}

func (NopHooks) TableDestroyed() {}
