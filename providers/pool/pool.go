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

// Package pool provides fixed-size buffer pools that register themselves as
// purgeable providers.
//
// Pools can be layered: a child pool draws buffers from its parent and
// hands idle buffers back to it when purged or destroyed. A child must be
// created after its parent so that registry teardown, which runs most
// recent first, destroys the child while the parent is still usable.
package pool

import (
	"errors"
	"sync"

	"dirpx.dev/pchain"
	"dirpx.dev/pchain/apis"
	"dirpx.dev/pchain/link"
)

var (
	// ErrDestroyed is returned by operations on a destroyed pool.
	ErrDestroyed = errors.New("pchain(pool): pool destroyed")
	// ErrWrongSize is returned when a buffer of another size is put back.
	ErrWrongSize = errors.New("pchain(pool): buffer size mismatch")
	// ErrInvalidSize is returned for a non-positive buffer size.
	ErrInvalidSize = errors.New("pchain(pool): invalid buffer size")
)

// Stats is a point-in-time view of a pool.
type Stats struct {
	Size      int    `yaml:"size"`
	Idle      int    `yaml:"idle"`
	InUse     int    `yaml:"in_use"`
	Allocated uint64 `yaml:"allocated"`
	Returned  uint64 `yaml:"returned"`
	Lost      uint64 `yaml:"lost"`
}

// Pool hands out buffers of a single size.
type Pool struct {
	link.Link

	name    string
	size    int
	maxIdle int
	parent  *Pool

	mu        sync.Mutex
	idle      [][]byte
	inUse     int
	allocated uint64 // buffers created with make
	returned  uint64 // buffers handed back to the parent
	lost      uint64 // buffers the parent refused
	destroyed bool
}

var (
	_ apis.Purgeable = (*Pool)(nil)
	_ apis.Destroyer = (*Pool)(nil)
	_ apis.Namer     = (*Pool)(nil)
)

// New creates a root pool registered with the process-wide registry.
// maxIdle bounds the free list; zero means unbounded.
func New(name string, size, maxIdle int) (*Pool, error) {
	return NewIn(pchain.Instance(), name, size, maxIdle, nil)
}

// NewChild creates a pool layered on parent, registered with the same
// registry as parent.
func NewChild(parent *Pool, name string, maxIdle int) (*Pool, error) {
	reg := parent.Registry()
	if reg == nil {
		return nil, ErrDestroyed
	}
	return NewIn(reg, name, parent.size, maxIdle, parent)
}

// NewIn creates a pool registered with reg. parent may be nil.
func NewIn(reg apis.Registry, name string, size, maxIdle int, parent *Pool) (*Pool, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if parent != nil && parent.size != size {
		return nil, ErrWrongSize
	}
	p := &Pool{name: name, size: size, maxIdle: maxIdle, parent: parent}
	if err := p.JoinTo(reg, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the pool name given at construction.
func (p *Pool) Name() string { return p.name }

// EntityName implements apis.Namer.
func (p *Pool) EntityName() string { return "pool." + p.name }

// Get returns a buffer, reusing an idle one when possible.
func (p *Pool) Get() ([]byte, error) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil, ErrDestroyed
	}
	if n := len(p.idle); n > 0 {
		b := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.inUse++
		p.mu.Unlock()
		return b, nil
	}
	p.inUse++
	parent := p.parent
	if parent == nil {
		p.allocated++
	}
	p.mu.Unlock()

	if parent == nil {
		return make([]byte, p.size), nil
	}
	b, err := parent.Get()
	if err != nil {
		p.mu.Lock()
		p.inUse--
		p.mu.Unlock()
		return nil, err
	}
	return b, nil
}

// Put returns b to the pool. Buffers beyond maxIdle go to the parent or
// are dropped.
func (p *Pool) Put(b []byte) error {
	if cap(b) != p.size {
		return ErrWrongSize
	}
	b = b[:p.size]

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if p.inUse > 0 {
		p.inUse--
	}
	if p.maxIdle == 0 || len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, b)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.release([][]byte{b})
	return nil
}

// Purge releases every idle buffer, to the parent for a child pool, and
// reports how many were released.
func (p *Pool) Purge() uint64 {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	p.release(idle)
	return uint64(len(idle))
}

// Destroy deregisters the pool and releases its idle buffers. Buffers
// still in use are not returned anywhere.
func (p *Pool) Destroy() {
	_ = p.Leave()

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	p.release(idle)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:      p.size,
		Idle:      len(p.idle),
		InUse:     p.inUse,
		Allocated: p.allocated,
		Returned:  p.returned,
		Lost:      p.lost,
	}
}

// release hands bufs to the parent, counting the ones it refuses.
func (p *Pool) release(bufs [][]byte) {
	if p.parent == nil || len(bufs) == 0 {
		return
	}
	var returned, lost uint64
	for _, b := range bufs {
		if err := p.parent.Put(b); err != nil {
			lost++
			continue
		}
		returned++
	}
	p.mu.Lock()
	p.returned += returned
	p.lost += lost
	p.mu.Unlock()
}
