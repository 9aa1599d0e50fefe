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

// Package cache provides a TTL cache that registers itself as a purgeable
// provider. Expired entries are dropped when the registry runs CleanupAll
// instead of by a background janitor.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"dirpx.dev/pchain"
	"dirpx.dev/pchain/apis"
	"dirpx.dev/pchain/link"
)

// DefaultTTL is the expiration used when New is given a non-positive TTL.
const DefaultTTL = 10 * time.Minute

// Cache is a string-keyed TTL cache of V values.
type Cache[V any] struct {
	link.Link
	ttl   time.Duration
	store *gocache.Cache
}

var (
	_ apis.Purgeable = (*Cache[int])(nil)
	_ apis.Destroyer = (*Cache[int])(nil)
	_ apis.Namer     = (*Cache[int])(nil)
)

// New creates a cache registered with the process-wide registry.
func New[V any](ttl time.Duration) (*Cache[V], error) {
	return NewIn[V](pchain.Instance(), ttl)
}

// NewIn creates a cache registered with reg.
func NewIn[V any](reg apis.Registry, ttl time.Duration) (*Cache[V], error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache[V]{
		ttl: ttl,
		// No janitor: expiry is driven by Purge.
		store: gocache.New(ttl, 0),
	}
	if err := c.JoinTo(reg, c); err != nil {
		return nil, err
	}
	return c, nil
}

// EntityName implements apis.Namer.
func (*Cache[V]) EntityName() string { return "provider.cache" }

// Get returns the unexpired value stored under key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	v, found := c.store.Get(key)
	if !found {
		return zero, false
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set stores v under key with the cache's default TTL.
func (c *Cache[V]) Set(key string, v V) {
	c.store.Set(key, v, gocache.DefaultExpiration)
}

// SetWithTTL stores v under key with a specific TTL. A non-positive ttl
// means the entry never expires.
func (c *Cache[V]) SetWithTTL(key string, v V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, v, ttl)
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.store.Delete(key)
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (c *Cache[V]) Len() int {
	return c.store.ItemCount()
}

// Purge drops expired entries and reports how many were removed.
func (c *Cache[V]) Purge() uint64 {
	before := c.store.ItemCount()
	c.store.DeleteExpired()
	after := c.store.ItemCount()
	if after >= before {
		return 0
	}
	return uint64(before - after)
}

// Destroy deregisters the cache and drops every entry.
func (c *Cache[V]) Destroy() {
	_ = c.Leave()
	c.store.Flush()
}
