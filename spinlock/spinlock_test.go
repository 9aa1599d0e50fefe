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

package spinlock_test

import (
	"runtime"
	"sync"
	"testing"

	"dirpx.dev/pchain/spinlock"
)

func TestSpinLock_MutualExclusion(t *testing.T) {
	var (
		l       spinlock.SpinLock
		counter int
		wg      sync.WaitGroup
	)

	workers := runtime.GOMAXPROCS(0) * 4
	const perWorker = 2000

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*perWorker {
		t.Fatalf("counter = %d, want %d", counter, workers*perWorker)
	}
}

func TestSpinLock_TryLock(t *testing.T) {
	var l spinlock.SpinLock

	if !l.TryLock() {
		t.Fatal("TryLock on a free lock failed")
	}
	if l.TryLock() {
		t.Fatal("TryLock on a held lock succeeded")
	}
	l.Unlock()
	if !l.TryLock() {
		t.Fatal("TryLock after Unlock failed")
	}
	l.Unlock()
}

func TestSpinLock_UnlockUnlockedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unlock of unlocked lock")
		}
	}()
	var l spinlock.SpinLock
	l.Unlock()
}
