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
	"path"
	"reflect"
	"strings"
	"sync"

	"dirpx.dev/pchain/apis"
)

// maxUnwrap bounds pointer unwrapping in the reflect strategy.
const maxUnwrap = 8

// NewNamerStrategy creates an apis.Strategy that uses apis.Namer.
func NewNamerStrategy() apis.Strategy {
	return namerStrategy{}
}

// namerStrategy is the zero-reflection fast path: if p implements
// apis.Namer, return its EntityName() and stop the chain.
type namerStrategy struct{}

var _ apis.Strategy = namerStrategy{}

// TryResolve checks if p implements apis.Namer and returns its EntityName().
func (namerStrategy) TryResolve(p any) (string, bool) {
	if p == nil {
		return "", false
	}
	if n, ok := p.(apis.Namer); ok {
		if name := n.EntityName(); name != "" {
			return name, true
		}
	}
	return "", false
}

// NewReflectStrategy creates an apis.Strategy that derives "pkg.Type"
// from the dynamic type of the provider.
func NewReflectStrategy() apis.Strategy {
	return reflectStrategy{}
}

// reflectStrategy is the universal fallback. It unwraps pointers and strips
// generic instantiation parameters.
type reflectStrategy struct{}

var _ apis.Strategy = reflectStrategy{}

// typeNameCache caches resolved names by reflect.Type.
var typeNameCache sync.Map // map[reflect.Type]string

// TryResolve computes the name for p's dynamic type.
func (reflectStrategy) TryResolve(p any) (string, bool) {
	if p == nil {
		return "", false
	}
	name := byType(reflect.TypeOf(p))
	return name, name != ""
}

// byType resolves the name for t with memoization.
func byType(t reflect.Type) string {
	if v, ok := typeNameCache.Load(t); ok {
		return v.(string)
	}

	base := deref(t)

	name := ""
	if base.Name() != "" {
		name = stripTypeParams(base.Name())
		if p := base.PkgPath(); p != "" {
			name = path.Base(p) + "." + name
		}
	}

	typeNameCache.Store(t, name)
	return name
}

// stripTypeParams removes generic type instantiation suffix: "T[int,string]" -> "T".
func stripTypeParams(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}
