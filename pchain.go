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

package pchain

import (
	"errors"
	"sync"
	"sync/atomic"

	"dirpx.dev/pchain/apis"
	"dirpx.dev/pchain/builder"
	"dirpx.dev/pchain/config"
)

// init publishes the initial state: default config and builder, no registry.
func init() {
	st.Store(&state{cfg: config.DefaultConfig(), bld: builder.New()})
}

var (
	// ErrNilRegistry is returned when a builder returns a nil registry.
	ErrNilRegistry = errors.New("pchain: builder returned nil registry")
)

// Instance returns the process-wide registry, creating it if none exists.
//
// While a registry is being torn down, Instance keeps returning it, so
// providers destroyed during teardown observe the registry that owns them.
//
// A registry created by Instance has no references: nothing tears it
// down until a Token is acquired and released, or Shutdown is called.
// Code that owns providers should hold a Token (Acquire) before calling
// Instance.
func Instance() apis.Registry {
	if s := st.Load(); s.reg != nil {
		return s.reg
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	return instanceLocked()
}

// Current returns the process-wide registry, or nil if none exists.
// Unlike Instance it never creates one.
func Current() apis.Registry {
	return st.Load().reg
}

// Alive reports whether a process-wide registry currently exists.
func Alive() bool {
	return st.Load().reg != nil
}

// Refs returns the reference count of the current registry, or 0 if none
// exists.
func Refs() uint32 {
	if reg := st.Load().reg; reg != nil {
		return reg.Refs()
	}
	return 0
}

// Shutdown tears the current registry down regardless of outstanding
// tokens, which become stale. It is meant for the very end of main.
func Shutdown() {
	buildMu.Lock()
	defer buildMu.Unlock()
	if s := st.Load(); s.reg != nil {
		teardownLocked(s)
	}
}

// Register adds p to the process-wide registry.
// This is a convenience wrapper around Instance().
func Register(p apis.Purgeable) (apis.Handle, error) {
	return Instance().Register(p)
}

// Deregister removes the registration h from the process-wide registry.
// This is a convenience wrapper around Instance().
func Deregister(h apis.Handle) error {
	return Instance().Deregister(h)
}

// CleanupAll asks every provider of the process-wide registry to purge
// and returns the total reclaimed.
func CleanupAll() uint64 {
	return Instance().CleanupAll()
}

// FirstProvider returns the earliest registration of the process-wide registry.
func FirstProvider() (apis.Handle, bool) {
	return Instance().First()
}

// NextProvider returns the registration following h.
func NextProvider(h apis.Handle) (apis.Handle, bool) {
	return Instance().Next(h)
}

// Provider returns the provider registered under h.
func Provider(h apis.Handle) (apis.Purgeable, bool) {
	return Instance().Provider(h)
}

// Providers returns a registration-ordered snapshot of the process-wide registry.
func Providers() []apis.Entry {
	return Instance().Entries()
}

// Config returns the configuration used for new registries.
func Config() apis.Config {
	return st.Load().cfg
}

// SetConfig sets the configuration used for registries created after
// this call. The current registry, if any, is not rebuilt.
func SetConfig(cfg apis.Config) {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	st.Store(&state{cfg: cfg, ext: old.ext, bld: old.bld, reg: old.reg})
}

// Builder returns the builder used for new registries.
func Builder() apis.Builder {
	return st.Load().bld
}

// SetBuilder sets the builder used for registries created after this call.
// A nil builder is ignored.
func SetBuilder(b apis.Builder) {
	if b == nil {
		return
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	st.Store(&state{cfg: old.cfg, ext: old.ext, bld: b, reg: old.reg})
}

// SetExt replaces the extension value passed to the builder.
func SetExt[T any](ext T) {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	st.Store(&state{cfg: old.cfg, ext: ext, bld: old.bld, reg: old.reg})
}

// ExtAs returns the extension value as type T.
func ExtAs[T any]() (T, bool) {
	ext, ok := st.Load().ext.(T)
	return ext, ok
}

// instanceLocked returns the current registry, building and publishing a
// new one if none exists. buildMu must be held.
func instanceLocked() apis.Registry {
	old := st.Load()
	if old.reg != nil {
		return old.reg
	}
	reg := old.bld.BuildRegistry(old.cfg, old.ext)
	if reg == nil {
		panic(ErrNilRegistry)
	}
	st.Store(&state{cfg: old.cfg, ext: old.ext, bld: old.bld, reg: reg})
	return reg
}

// teardownLocked destroys s.reg and then clears the current registry.
// buildMu must be held.
func teardownLocked(s *state) {
	s.reg.Teardown()
	st.Store(&state{cfg: s.cfg, ext: s.ext, bld: s.bld})
}

// buildMu serializes registry creation, reference count transitions and
// teardown, so a token can never revive a registry that is being torn down.
var buildMu sync.Mutex

// st is the global pchain state.
var st atomic.Pointer[state]

// state is the global pchain state snapshot.
// Immutable once published via st.Store; writers create a new state and
// swap it atomically.
type state struct {
	// cfg is the configuration for new registries.
	cfg apis.Config
	// ext is the opaque extension value passed to bld.
	ext any
	// bld builds new registries.
	bld apis.Builder
	// reg is the current registry, nil when none exists.
	reg apis.Registry
}
