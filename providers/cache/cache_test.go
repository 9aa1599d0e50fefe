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

package cache_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/pchain/config"
	"dirpx.dev/pchain/providers/cache"
	"dirpx.dev/pchain/registry"
)

func newRegistry() *registry.Registry {
	return registry.New(config.NewConfig(config.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))))
}

func TestCache_PurgeDropsExpiredOnly(t *testing.T) {
	reg := newRegistry()
	c, err := cache.NewIn[string](reg, time.Hour)
	require.NoError(t, err)

	c.Set("keep", "a")
	c.SetWithTTL("forever", "b", 0)
	c.SetWithTTL("gone-1", "c", time.Nanosecond)
	c.SetWithTTL("gone-2", "d", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, uint64(2), reg.CleanupAll())
	assert.Equal(t, 2, c.Len())
	assert.Zero(t, reg.CleanupAll())

	v, ok := c.Get("keep")
	require.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = c.Get("gone-1")
	assert.False(t, ok)
}

func TestCache_RegistersUnderNamerName(t *testing.T) {
	reg := newRegistry()
	_, err := cache.NewIn[int](reg, 0)
	require.NoError(t, err)

	entries := reg.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "provider.cache", entries[0].Name)
}

func TestCache_DestroyedByTeardown(t *testing.T) {
	reg := newRegistry()
	c, err := cache.NewIn[int](reg, time.Minute)
	require.NoError(t, err)
	c.Set("x", 1)

	reg.Teardown()

	assert.False(t, c.Joined())
	assert.Zero(t, c.Len())
	assert.Zero(t, reg.Count())
}

func TestCache_DeleteAndTypedGet(t *testing.T) {
	reg := newRegistry()
	c, err := cache.NewIn[int](reg, time.Minute)
	require.NoError(t, err)

	c.Set("n", 42)
	v, ok := c.Get("n")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	c.Delete("n")
	_, ok = c.Get("n")
	assert.False(t, ok)
}

func TestCache_NewInClosedRegistry(t *testing.T) {
	reg := newRegistry()
	reg.Teardown()
	_, err := cache.NewIn[int](reg, time.Minute)
	assert.ErrorIs(t, err, registry.ErrClosed)
}
