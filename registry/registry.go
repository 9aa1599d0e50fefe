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

// Package registry implements the provider chain: an arena of registration
// slots linked in registration order, guarded by a spin lock and carrying
// the reference count that decides when the chain is torn down.
package registry

import (
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"dirpx.dev/pchain/apis"
	"dirpx.dev/pchain/config"
	"dirpx.dev/pchain/spinlock"
)

var (
	// ErrNilProvider is returned when a nil provider is registered.
	ErrNilProvider = errors.New("pchain(registry): nil provider")
	// ErrDuplicateProvider is returned when a provider is registered twice.
	ErrDuplicateProvider = errors.New("pchain(registry): provider already registered")
	// ErrUnknownHandle is returned when a handle does not address a live
	// registration, e.g. after a double deregistration.
	ErrUnknownHandle = errors.New("pchain(registry): unknown or stale handle")
	// ErrRefUnderflow is returned when DecRef is called with a zero count.
	ErrRefUnderflow = errors.New("pchain(registry): reference count underflow")
	// ErrClosed is returned when registering with, or referencing, a
	// registry that has been torn down.
	ErrClosed = errors.New("pchain(registry): registry torn down")
)

// none marks the absence of a slot in head, tail, prev and next.
const none int32 = -1

// slot is one arena cell. Free slots keep their generation so stale
// handles never match a reused cell.
type slot struct {
	p    apis.Purgeable
	name string
	gen  uint32
	prev int32
	next int32
	live bool
}

// Registry is the arena-backed apis.Registry.
type Registry struct {
	id  string
	cfg apis.Config
	log *slog.Logger

	// lock guards every field below it.
	lock  spinlock.SpinLock
	slots []slot
	free  []int32
	head  int32
	tail  int32
	count int
	refs  uint32
	// byPtr detects duplicate registration of pointer providers whose
	// pointee has a non-zero size. Zero-size values may share an address.
	byPtr map[apis.Purgeable]int32
	// seq numbers chain changes in lock order for observer delivery.
	seq uint64

	// evMu and evCond deliver observer events in seq order.
	evMu   sync.Mutex
	evCond *sync.Cond
	evNext uint64

	// closing is set once Teardown starts; Register is rejected afterwards.
	closing atomic.Bool
	// done is closed when Teardown has finished.
	done chan struct{}
}

var _ apis.Registry = (*Registry)(nil)

// New constructs an empty Registry and fires cfg.Hooks.TableCreated.
// Missing collaborators in cfg are filled with defaults.
func New(cfg apis.Config) *Registry {
	cfg = config.Complete(cfg)
	r := &Registry{
		id:    uuid.NewString(),
		cfg:   cfg,
		slots: make([]slot, 0, cfg.Capacity),
		head:  none,
		tail:  none,
		byPtr: make(map[apis.Purgeable]int32, cfg.Capacity),
		done:  make(chan struct{}),
	}
	r.evCond = sync.NewCond(&r.evMu)
	r.log = cfg.Logger.With("registry", r.id)

	cfg.Hooks.TableCreated()
	r.log.Info("registry created")
	return r
}

// ID returns the unique id of this registry instance.
func (r *Registry) ID() string { return r.id }

// Register appends p to the tail of the chain. Duplicates are detected
// by address for pointers to non-zero-size values only.
func (r *Registry) Register(p apis.Purgeable) (apis.Handle, error) {
	if isNil(p) {
		return apis.Handle{}, ErrNilProvider
	}
	name := r.cfg.Resolver.Resolve(p)
	byPtr := identifiable(p)

	r.lock.Lock()
	if r.closing.Load() {
		r.lock.Unlock()
		return apis.Handle{}, ErrClosed
	}
	if byPtr {
		if _, dup := r.byPtr[p]; dup {
			r.lock.Unlock()
			return apis.Handle{}, ErrDuplicateProvider
		}
	}

	idx := r.allocLocked()
	s := &r.slots[idx]
	s.p, s.name, s.live = p, name, true
	s.prev, s.next = r.tail, none
	if r.tail == none {
		r.head = idx
	} else {
		r.slots[r.tail].next = idx
	}
	r.tail = idx
	r.count++
	if byPtr {
		r.byPtr[p] = idx
	}
	h := apis.NewHandle(uint32(idx), s.gen)
	seq := r.nextSeqLocked()
	r.lock.Unlock()

	r.emit(seq, func() { r.cfg.Observer.ProviderRegistered(name) })
	r.log.Debug("provider registered", "provider", name, "handle", h.String())
	return h, nil
}

// Deregister removes the registration addressed by h.
func (r *Registry) Deregister(h apis.Handle) error {
	r.lock.Lock()
	idx, ok := r.lookupLocked(h)
	if !ok {
		r.lock.Unlock()
		return r.violation(ErrUnknownHandle, "handle", h.String())
	}
	name := r.slots[idx].name
	r.unlinkLocked(idx)
	seq := r.nextSeqLocked()
	r.lock.Unlock()

	r.emit(seq, func() { r.cfg.Observer.ProviderDeregistered(name) })
	r.log.Debug("provider deregistered", "provider", name, "handle", h.String())
	return nil
}

// Provider returns the provider registered under h.
func (r *Registry) Provider(h apis.Handle) (apis.Purgeable, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	idx, ok := r.lookupLocked(h)
	if !ok {
		return nil, false
	}
	return r.slots[idx].p, true
}

// First returns the handle of the earliest registration still present.
func (r *Registry) First() (apis.Handle, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.handleLocked(r.head)
}

// Next returns the registration following h. A stale h ends the walk.
func (r *Registry) Next(h apis.Handle) (apis.Handle, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	idx, ok := r.lookupLocked(h)
	if !ok {
		return apis.Handle{}, false
	}
	return r.handleLocked(r.slots[idx].next)
}

// Entries returns a chain-ordered snapshot for diagnostics.
func (r *Registry) Entries() []apis.Entry {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]apis.Entry, 0, r.count)
	for i := r.head; i != none; i = r.slots[i].next {
		s := &r.slots[i]
		out = append(out, apis.Entry{
			Handle:   apis.NewHandle(uint32(i), s.gen),
			Name:     s.name,
			Provider: s.p,
		})
	}
	return out
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.count
}

// purgeResult is the outcome of a single provider's Purge.
type purgeResult struct {
	name string
	n    uint64
}

// CleanupAll asks every provider to purge and returns the total.
//
// The lock is held across the whole traversal, so a provider's Purge
// must never call back into the registry.
func (r *Registry) CleanupAll() uint64 {
	total, results := r.purgeAll()
	for _, res := range results {
		r.cfg.Observer.ProviderPurged(res.name, res.n)
	}
	r.log.Debug("cleanup finished", "providers", len(results), "reclaimed", total)
	return total
}

func (r *Registry) purgeAll() (uint64, []purgeResult) {
	r.lock.Lock()
	defer r.lock.Unlock()
	var total uint64
	results := make([]purgeResult, 0, r.count)
	for i := r.head; i != none; i = r.slots[i].next {
		s := &r.slots[i]
		n := s.p.Purge()
		total += n
		results = append(results, purgeResult{name: s.name, n: n})
	}
	return total, results
}

// IncRef increments the reference count and returns the new value.
func (r *Registry) IncRef() (uint32, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closing.Load() {
		return r.refs, ErrClosed
	}
	r.refs++
	return r.refs, nil
}

// DecRef decrements the reference count and returns the new value.
func (r *Registry) DecRef() (uint32, error) {
	r.lock.Lock()
	if r.refs == 0 {
		r.lock.Unlock()
		return 0, r.violation(ErrRefUnderflow)
	}
	r.refs--
	n := r.refs
	r.lock.Unlock()
	return n, nil
}

// Refs returns the current reference count.
func (r *Registry) Refs() uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.refs
}

// Alive reports whether Teardown has not started.
func (r *Registry) Alive() bool { return !r.closing.Load() }

// Teardown destroys the remaining providers, most recently registered
// first, then fires cfg.Hooks.TableDestroyed. Only the first call does
// the work; concurrent callers block until it has finished. A provider's
// Destroy must not call Teardown.
//
// The lock is only held to read the tail: destroying a provider
// deregisters it, which takes the lock again.
func (r *Registry) Teardown() {
	if !r.closing.CompareAndSwap(false, true) {
		<-r.done
		return
	}
	defer close(r.done)
	r.log.Info("tearing down registry", "providers", r.Count())

	destroyed := 0
	for {
		r.lock.Lock()
		h, ok := r.handleLocked(r.tail)
		var p apis.Purgeable
		if ok {
			p = r.slots[h.Index()].p
		}
		r.lock.Unlock()
		if !ok {
			break
		}

		if d, isDestroyer := p.(apis.Destroyer); isDestroyer {
			d.Destroy()
		}

		// Providers without Destroy, or whose Destroy did not leave the
		// chain, are removed here.
		r.lock.Lock()
		idx, still := r.lookupLocked(h)
		var (
			name string
			seq  uint64
		)
		if still {
			name = r.slots[idx].name
			r.unlinkLocked(idx)
			seq = r.nextSeqLocked()
		}
		r.lock.Unlock()
		if still {
			r.emit(seq, func() { r.cfg.Observer.ProviderDeregistered(name) })
		}
		destroyed++
	}

	r.cfg.Hooks.TableDestroyed()
	r.log.Info("registry destroyed", "destroyed", destroyed)
}

// allocLocked returns a free slot index, growing the arena if needed,
// and advances the slot generation.
func (r *Registry) allocLocked() int32 {
	var idx int32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{})
		idx = int32(len(r.slots) - 1)
	}
	s := &r.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	return idx
}

// unlinkLocked removes slot idx from the chain and returns it to the free list.
func (r *Registry) unlinkLocked(idx int32) {
	s := &r.slots[idx]
	if s.prev == none {
		r.head = s.next
	} else {
		r.slots[s.prev].next = s.next
	}
	if s.next == none {
		r.tail = s.prev
	} else {
		r.slots[s.next].prev = s.prev
	}
	if identifiable(s.p) {
		delete(r.byPtr, s.p)
	}
	s.p, s.name, s.live = nil, "", false
	s.prev, s.next = none, none
	r.free = append(r.free, idx)
	r.count--
}

// lookupLocked resolves h to a live slot index.
func (r *Registry) lookupLocked(h apis.Handle) (int32, bool) {
	if h.IsZero() || int(h.Index()) >= len(r.slots) {
		return none, false
	}
	s := &r.slots[h.Index()]
	if !s.live || s.gen != h.Generation() {
		return none, false
	}
	return int32(h.Index()), true
}

// nextSeqLocked numbers a chain change for observer delivery.
func (r *Registry) nextSeqLocked() uint64 {
	seq := r.seq
	r.seq++
	return seq
}

// emit runs fn once every change numbered before seq has been delivered,
// so observers see events in chain order.
func (r *Registry) emit(seq uint64, fn func()) {
	r.evMu.Lock()
	for r.evNext != seq {
		r.evCond.Wait()
	}
	defer func() {
		r.evNext++
		r.evCond.Broadcast()
		r.evMu.Unlock()
	}()
	fn()
}

// handleLocked builds the handle of slot idx, or reports none.
func (r *Registry) handleLocked(idx int32) (apis.Handle, bool) {
	if idx == none {
		return apis.Handle{}, false
	}
	return apis.NewHandle(uint32(idx), r.slots[idx].gen), true
}

// violation reports a broken usage invariant. In strict mode it panics.
func (r *Registry) violation(err error, attrs ...any) error {
	r.log.Warn("invariant violation", append([]any{"err", err}, attrs...)...)
	if r.cfg.Strict {
		panic(err)
	}
	return err
}

// isNil reports whether p is nil or a typed nil pointer.
func isNil(p apis.Purgeable) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// identifiable reports whether p's address identifies it: p is a pointer
// to a value of non-zero size.
func identifiable(p apis.Purgeable) bool {
	if p == nil {
		return false
	}
	t := reflect.TypeOf(p)
	return t.Kind() == reflect.Pointer && t.Elem().Size() > 0
}
