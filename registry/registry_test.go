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

package registry_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"dirpx.dev/pchain/apis"
	"dirpx.dev/pchain/config"
	"dirpx.dev/pchain/registry"
)

// probe is a provider that reports a fixed purge amount.
type probe struct {
	id     int
	amount uint64
	purged int
}

func (p *probe) Purge() uint64 {
	p.purged++
	return p.amount
}

// destroyer records its destruction and leaves the chain like a real provider.
type destroyer struct {
	id    int
	reg   *registry.Registry
	h     apis.Handle
	order *[]int
}

func (d *destroyer) Purge() uint64 { return 0 }

func (d *destroyer) Destroy() {
	*d.order = append(*d.order, d.id)
	_ = d.reg.Deregister(d.h)
}

// valueProvider is a non-pointer provider.
type valueProvider struct{ n uint64 }

func (v valueProvider) Purge() uint64 { return v.n }

type countingHooks struct {
	created, destroyed int
}

func (h *countingHooks) TableCreated()   { h.created++ }
func (h *countingHooks) TableDestroyed() { h.destroyed++ }

func newRegistry(opts ...config.Option) *registry.Registry {
	base := []config.Option{config.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return registry.New(config.NewConfig(append(base, opts...)...))
}

// chainIDs walks the chain through First/Next and returns probe ids.
func chainIDs(t *testing.T, reg *registry.Registry) []int {
	t.Helper()
	var ids []int
	for h, ok := reg.First(); ok; h, ok = reg.Next(h) {
		p, found := reg.Provider(h)
		require.True(t, found, "handle %s from walk not resolvable", h)
		ids = append(ids, p.(*probe).id)
	}
	return ids
}

func TestRegister_PreservesRegistrationOrder(t *testing.T) {
	reg := newRegistry()

	want := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		_, err := reg.Register(&probe{id: i})
		require.NoError(t, err)
		want = append(want, i)
	}

	assert.Equal(t, want, chainIDs(t, reg))
	assert.Equal(t, 10, reg.Count())

	entries := reg.Entries()
	require.Len(t, entries, 10)
	for i, e := range entries {
		assert.Equal(t, i, e.Provider.(*probe).id)
		assert.Equal(t, "registry_test.probe", e.Name)
	}
}

func TestRegister_Errors(t *testing.T) {
	reg := newRegistry()

	_, err := reg.Register(nil)
	assert.ErrorIs(t, err, registry.ErrNilProvider)

	var typedNil *probe
	_, err = reg.Register(typedNil)
	assert.ErrorIs(t, err, registry.ErrNilProvider)

	p := &probe{}
	_, err = reg.Register(p)
	require.NoError(t, err)
	_, err = reg.Register(p)
	assert.ErrorIs(t, err, registry.ErrDuplicateProvider)
	assert.Equal(t, 1, reg.Count())
}

func TestRegister_ValueProvidersAreNotDeduplicated(t *testing.T) {
	reg := newRegistry()

	h1, err := reg.Register(valueProvider{n: 1})
	require.NoError(t, err)
	h2, err := reg.Register(valueProvider{n: 1})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.Equal(t, uint64(2), reg.CleanupAll())
}

func TestFirst_EmptyChain(t *testing.T) {
	reg := newRegistry()
	h, ok := reg.First()
	assert.False(t, ok)
	assert.True(t, h.IsZero())
}

func TestDeregister_HeadMiddleTail(t *testing.T) {
	reg := newRegistry()
	handles := make([]apis.Handle, 5)
	for i := range handles {
		h, err := reg.Register(&probe{id: i})
		require.NoError(t, err)
		handles[i] = h
	}

	require.NoError(t, reg.Deregister(handles[2]))
	assert.Equal(t, []int{0, 1, 3, 4}, chainIDs(t, reg))

	require.NoError(t, reg.Deregister(handles[0]))
	assert.Equal(t, []int{1, 3, 4}, chainIDs(t, reg))

	require.NoError(t, reg.Deregister(handles[4]))
	assert.Equal(t, []int{1, 3}, chainIDs(t, reg))

	// Appending after removing the tail must link after the new tail.
	_, err := reg.Register(&probe{id: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, chainIDs(t, reg))
}

func TestDeregister_UnknownHandle(t *testing.T) {
	reg := newRegistry(config.WithStrict(false))

	h, err := reg.Register(&probe{id: 1})
	require.NoError(t, err)
	require.NoError(t, reg.Deregister(h))

	assert.ErrorIs(t, reg.Deregister(h), registry.ErrUnknownHandle, "double deregistration")
	assert.ErrorIs(t, reg.Deregister(apis.Handle{}), registry.ErrUnknownHandle, "zero handle")
	assert.ErrorIs(t, reg.Deregister(apis.NewHandle(99, 1)), registry.ErrUnknownHandle, "out of range")
	assert.Equal(t, 0, reg.Count())
}

func TestDeregister_UnknownHandleStrictPanics(t *testing.T) {
	reg := newRegistry(config.WithStrict(true))
	assert.PanicsWithValue(t, registry.ErrUnknownHandle, func() {
		_ = reg.Deregister(apis.NewHandle(0, 1))
	})
	// The lock must have been released before panicking.
	_, err := reg.Register(&probe{})
	assert.NoError(t, err)
}

func TestStaleHandle_AfterSlotReuse(t *testing.T) {
	reg := newRegistry()

	old, err := reg.Register(&probe{id: 1})
	require.NoError(t, err)
	require.NoError(t, reg.Deregister(old))

	fresh, err := reg.Register(&probe{id: 2})
	require.NoError(t, err)
	assert.Equal(t, old.Index(), fresh.Index(), "slot should be reused")
	assert.NotEqual(t, old.Generation(), fresh.Generation())

	_, ok := reg.Provider(old)
	assert.False(t, ok)
	_, ok = reg.Next(old)
	assert.False(t, ok)
	assert.ErrorIs(t, reg.Deregister(old), registry.ErrUnknownHandle)

	p, ok := reg.Provider(fresh)
	require.True(t, ok)
	assert.Equal(t, 2, p.(*probe).id)
}

func TestDeregister_AnyOrderKeepsRelativeOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		reg := newRegistry()
		n := rapid.IntRange(1, 24).Draw(rt, "n")

		handles := make(map[int]apis.Handle, n)
		ids := make([]int, n)
		for i := 0; i < n; i++ {
			h, err := reg.Register(&probe{id: i})
			if err != nil {
				rt.Fatalf("register %d: %v", i, err)
			}
			handles[i] = h
			ids[i] = i
		}

		order := rapid.Permutation(ids).Draw(rt, "removal order")
		remaining := append([]int(nil), ids...)
		for _, victim := range order {
			if err := reg.Deregister(handles[victim]); err != nil {
				rt.Fatalf("deregister %d: %v", victim, err)
			}
			remaining = without(remaining, victim)

			var got []int
			for _, e := range reg.Entries() {
				got = append(got, e.Provider.(*probe).id)
			}
			if !equalInts(got, remaining) {
				rt.Fatalf("after removing %d: chain %v, want %v", victim, got, remaining)
			}
		}
		if reg.Count() != 0 {
			rt.Fatalf("count = %d after removing all", reg.Count())
		}
	})
}

func TestCleanupAll_SumsWithoutChangingMembership(t *testing.T) {
	reg := newRegistry()
	probes := []*probe{{id: 0, amount: 3}, {id: 1, amount: 0}, {id: 2, amount: 39}}
	for _, p := range probes {
		_, err := reg.Register(p)
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(42), reg.CleanupAll())
	assert.Equal(t, uint64(42), reg.CleanupAll())
	assert.Equal(t, []int{0, 1, 2}, chainIDs(t, reg))
	for _, p := range probes {
		assert.Equal(t, 2, p.purged)
	}
}

func TestCleanupAll_Empty(t *testing.T) {
	assert.Zero(t, newRegistry().CleanupAll())
}

func TestTeardown_ReverseRegistrationOrder(t *testing.T) {
	hooks := &countingHooks{}
	reg := newRegistry(config.WithHooks(hooks))
	require.Equal(t, 1, hooks.created)

	var order []int
	for i := 1; i <= 3; i++ {
		d := &destroyer{id: i, reg: reg, order: &order}
		h, err := reg.Register(d)
		require.NoError(t, err)
		d.h = h
	}
	// A provider without Destroy is still removed.
	_, err := reg.Register(&probe{id: 4})
	require.NoError(t, err)

	reg.Teardown()

	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Equal(t, 0, reg.Count())
	assert.False(t, reg.Alive())
	assert.Equal(t, 1, hooks.destroyed)

	reg.Teardown()
	assert.Equal(t, 1, hooks.destroyed, "teardown must be idempotent")
}

// sweeper removes another provider when it is destroyed.
type sweeper struct {
	id     int
	reg    *registry.Registry
	victim apis.Handle
	order  *[]int
}

func (s *sweeper) Purge() uint64 { return 0 }

func (s *sweeper) Destroy() {
	*s.order = append(*s.order, s.id)
	_ = s.reg.Deregister(s.victim)
}

func TestTeardown_DestroyMayRemoveOtherProviders(t *testing.T) {
	hooks := &countingHooks{}
	reg := newRegistry(config.WithHooks(hooks))

	var order []int
	handles := make([]apis.Handle, 0, 3)
	for i := 1; i <= 3; i++ {
		d := &destroyer{id: i, reg: reg, order: &order}
		h, err := reg.Register(d)
		require.NoError(t, err)
		d.h = h
		handles = append(handles, h)
	}
	_, err := reg.Register(&sweeper{id: 9, reg: reg, victim: handles[1], order: &order})
	require.NoError(t, err)

	reg.Teardown()

	// The sweeper goes first and takes provider 2 with it, so 2 is never
	// destroyed and the walk continues from the new tail.
	assert.Equal(t, []int{9, 3, 1}, order)
	assert.Zero(t, reg.Count())
	assert.Equal(t, 1, hooks.destroyed)
}

// emptyProvider has no fields; distinct values may share an address.
type emptyProvider struct{}

func (*emptyProvider) Purge() uint64 { return 1 }

func TestRegister_ZeroSizeProvidersAreDistinct(t *testing.T) {
	reg := newRegistry()

	a, b := &emptyProvider{}, &emptyProvider{}
	ha, err := reg.Register(a)
	require.NoError(t, err)
	hb, err := reg.Register(b)
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb)
	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, uint64(2), reg.CleanupAll())

	require.NoError(t, reg.Deregister(ha))
	require.NoError(t, reg.Deregister(hb))
	assert.Zero(t, reg.Count())
}

func TestTeardown_RejectsNewWork(t *testing.T) {
	reg := newRegistry()
	reg.Teardown()

	_, err := reg.Register(&probe{})
	assert.ErrorIs(t, err, registry.ErrClosed)
	_, err = reg.IncRef()
	assert.ErrorIs(t, err, registry.ErrClosed)
}

func TestRefCounting(t *testing.T) {
	reg := newRegistry(config.WithStrict(false))

	n, err := reg.IncRef()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)
	n, err = reg.IncRef()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
	assert.Equal(t, uint32(2), reg.Refs())

	n, err = reg.DecRef()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)
	n, err = reg.DecRef()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)

	n, err = reg.DecRef()
	assert.ErrorIs(t, err, registry.ErrRefUnderflow)
	assert.Equal(t, uint32(0), n, "count never goes negative")
}

func TestRefUnderflow_StrictPanics(t *testing.T) {
	reg := newRegistry(config.WithStrict(true))
	assert.Panics(t, func() { _, _ = reg.DecRef() })
}

func TestID_UniquePerInstance(t *testing.T) {
	a, b := newRegistry(), newRegistry()
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func without(s []int, v int) []int {
	out := s[:0:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
