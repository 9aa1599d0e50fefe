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

// Package link lets a provider type carry its own registration.
//
// A provider embeds a Link, calls Join from its constructor and Leave from
// its Destroy method:
//
//	type Arena struct {
//	    link.Link
//	    ...
//	}
//
//	func NewArena() (*Arena, error) {
//	    a := &Arena{}
//	    if err := a.Join(a); err != nil {
//	        return nil, err
//	    }
//	    return a, nil
//	}
//
//	func (a *Arena) Destroy() {
//	    _ = a.Leave()
//	    ...
//	}
package link

import (
	"errors"
	"sync"

	"dirpx.dev/pchain"
	"dirpx.dev/pchain/apis"
)

var (
	// ErrAlreadyJoined is returned when Join is called on a joined Link.
	ErrAlreadyJoined = errors.New("pchain(link): already joined")
)

// Link records where a provider is registered. The zero value is not
// joined. A Link must not be copied after Join.
type Link struct {
	mu  sync.Mutex
	reg apis.Registry
	h   apis.Handle
}

// Join registers p with the process-wide registry.
func (l *Link) Join(p apis.Purgeable) error {
	return l.JoinTo(pchain.Instance(), p)
}

// JoinTo registers p with reg.
func (l *Link) JoinTo(reg apis.Registry, p apis.Purgeable) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reg != nil {
		return ErrAlreadyJoined
	}
	h, err := reg.Register(p)
	if err != nil {
		return err
	}
	l.reg, l.h = reg, h
	return nil
}

// Leave deregisters the provider. Leaving an unjoined Link is a no-op, so
// Destroy methods may call it unconditionally.
func (l *Link) Leave() error {
	l.mu.Lock()
	reg, h := l.reg, l.h
	l.reg, l.h = nil, apis.Handle{}
	l.mu.Unlock()
	if reg == nil {
		return nil
	}
	return reg.Deregister(h)
}

// Joined reports whether the provider is currently registered through l.
func (l *Link) Joined() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reg != nil
}

// Handle returns the registration handle, or the zero Handle if not joined.
func (l *Link) Handle() apis.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.h
}

// Registry returns the registry l is joined to, or nil.
func (l *Link) Registry() apis.Registry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reg
}

// Next returns the provider registered after this one.
func (l *Link) Next() (apis.Purgeable, bool) {
	l.mu.Lock()
	reg, h := l.reg, l.h
	l.mu.Unlock()
	if reg == nil {
		return nil, false
	}
	nh, ok := reg.Next(h)
	if !ok {
		return nil, false
	}
	return reg.Provider(nh)
}
