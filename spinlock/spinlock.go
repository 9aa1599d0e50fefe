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

// Package spinlock provides a busy-wait mutual exclusion primitive for
// very short critical sections.
//
// Code holding a SpinLock must not block, perform I/O or call anything that
// may try to acquire the same lock: the lock is not reentrant and waiters
// burn CPU while they wait.
package spinlock

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// activeSpins is the number of CAS attempts before a waiter starts yielding
// its processor between attempts.
const activeSpins = 64

// SpinLock is a non-reentrant busy-wait lock. The zero value is unlocked.
// A SpinLock must not be copied after first use.
type SpinLock struct {
	state atomic.Uint32
}

var _ sync.Locker = (*SpinLock)(nil)

// Lock acquires l, spinning until it is available.
func (l *SpinLock) Lock() {
	for i := 0; !l.state.CompareAndSwap(0, 1); i++ {
		if i >= activeSpins {
			runtime.Gosched()
		}
	}
}

// TryLock acquires l if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Unlock releases l. Unlocking an unlocked SpinLock panics.
func (l *SpinLock) Unlock() {
	if l.state.Swap(0) == 0 {
		panic("spinlock: unlock of unlocked lock")
	}
}
