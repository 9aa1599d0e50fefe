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
	"fmt"
	"sync/atomic"

	"dirpx.dev/pchain/apis"
)

var (
	// ErrTokenReleased is returned when a token is released twice.
	ErrTokenReleased = errors.New("pchain: token already released")
	// ErrStaleToken is returned when a token outlived its registry,
	// e.g. after Shutdown.
	ErrStaleToken = errors.New("pchain: token refers to a torn down registry")
)

// Token keeps the process-wide registry alive. Every module that registers
// providers holds one for as long as it needs the registry; releasing the
// last token tears the registry down.
type Token struct {
	reg      apis.Registry
	released atomic.Bool
}

// Acquire returns a new Token, creating the process-wide registry if none
// exists.
func Acquire() (*Token, error) {
	buildMu.Lock()
	defer buildMu.Unlock()

	reg := instanceLocked()
	if _, err := reg.IncRef(); err != nil {
		return nil, fmt.Errorf("pchain: acquire: %w", err)
	}
	return &Token{reg: reg}, nil
}

// MustAcquire is like Acquire but panics on error.
func MustAcquire() *Token {
	t, err := Acquire()
	if err != nil {
		panic(err)
	}
	return t
}

// Registry returns the registry the token keeps alive.
func (t *Token) Registry() apis.Registry {
	return t.reg
}

// Release drops the token's reference. When it was the last one, the
// registry destroys its remaining providers, most recent first, and a
// later Acquire or Instance creates a fresh registry.
//
// Release must not be called from a provider's Destroy.
func (t *Token) Release() error {
	if !t.released.CompareAndSwap(false, true) {
		return ErrTokenReleased
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	s := st.Load()
	if s.reg != t.reg {
		return ErrStaleToken
	}
	n, err := t.reg.DecRef()
	if err != nil {
		return fmt.Errorf("pchain: release: %w", err)
	}
	if n == 0 {
		teardownLocked(s)
	}
	return nil
}
