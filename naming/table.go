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

package naming

import (
	"errors"
	"reflect"
	"sync"

	"dirpx.dev/pchain/apis"
)

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("pchain(naming): nil reflect.Type provided")
	// ErrEmptyName is returned when an empty name is provided.
	ErrEmptyName = errors.New("pchain(naming): empty name provided")
	// ErrConflictingName indicates an attempt to re-assign a type to a
	// different name.
	ErrConflictingName = errors.New("pchain(naming): conflicting type name")
)

// Table maps provider types to explicit names, for types that cannot
// implement apis.Namer themselves. Pointer types are stored by their
// element type, so *T and T share one entry.
type Table struct {
	// mu serializes writers; readers go through m.
	mu sync.Mutex
	// m maps reflect.Type to assigned name.
	m sync.Map // map[reflect.Type]string
	// count tracks the number of entries.
	count int
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Assign associates t with name. It is idempotent for the same
// (type, name) pair.
func (tb *Table) Assign(t reflect.Type, name string) error {
	if t == nil {
		return ErrNilType
	}
	if name == "" {
		return ErrEmptyName
	}
	t = deref(t)

	if old, ok := tb.m.Load(t); ok {
		if old.(string) == name {
			return nil
		}
		return ErrConflictingName
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	// Re-check under lock in case another goroutine stored meanwhile.
	if old, ok := tb.m.Load(t); ok {
		if old.(string) == name {
			return nil
		}
		return ErrConflictingName
	}
	tb.m.Store(t, name)
	tb.count++
	return nil
}

// Lookup returns the name assigned to t, if any.
func (tb *Table) Lookup(t reflect.Type) (string, bool) {
	if t == nil {
		return "", false
	}
	if v, ok := tb.m.Load(deref(t)); ok {
		return v.(string), true
	}
	return "", false
}

// Count returns the number of entries.
func (tb *Table) Count() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.count
}

// Assign names T in the table used by Default.
func Assign[T any](name string) error {
	return defaultTable.Assign(reflect.TypeFor[T](), name)
}

// NewTableStrategy creates an apis.Strategy that looks providers up in tb.
func NewTableStrategy(tb *Table) apis.Strategy {
	return &tableStrategy{tb: tb}
}

// tableStrategy consults a Table (reflection-free after TypeOf).
type tableStrategy struct {
	tb *Table
}

var _ apis.Strategy = (*tableStrategy)(nil)

// TryResolve looks up p's dynamic type in the table.
func (s *tableStrategy) TryResolve(p any) (string, bool) {
	if p == nil || s.tb == nil {
		return "", false
	}
	return s.tb.Lookup(reflect.TypeOf(p))
}

// deref unwraps pointer types, at most maxUnwrap levels.
func deref(t reflect.Type) reflect.Type {
	for i := 0; i < maxUnwrap && t.Kind() == reflect.Pointer; i++ {
		t = t.Elem()
	}
	return t
}
