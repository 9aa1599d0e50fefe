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

package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"dirpx.dev/pchain"
	"dirpx.dev/pchain/internal/cli"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := cli.NewRootCommand("test")
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

type demoOut struct {
	Registry  string             `yaml:"registry"`
	Providers []string           `yaml:"providers"`
	Reclaimed uint64             `yaml:"reclaimed"`
	CacheLen  int                `yaml:"cache_len"`
	Teardown  []string           `yaml:"teardown"`
	Metrics   map[string]float64 `yaml:"metrics"`
	Pools     map[string]struct {
		Idle      int    `yaml:"idle"`
		InUse     int    `yaml:"in_use"`
		Allocated uint64 `yaml:"allocated"`
		Returned  uint64 `yaml:"returned"`
	} `yaml:"pools"`
}

type stressOut struct {
	Workers    int    `yaml:"workers"`
	Iterations int    `yaml:"iterations"`
	Operations uint64 `yaml:"operations"`
	Remaining  int    `yaml:"remaining"`
}

func TestDemo_YAMLWithMetrics(t *testing.T) {
	out, err := run(t, "demo", "--output", "yaml", "--metrics")
	require.NoError(t, err)

	var got demoOut
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))

	assert.NotEmpty(t, got.Registry)
	assert.Equal(t, []string{"pool.root", "pool.child", "provider.cache"}, got.Providers)
	assert.Equal(t, []string{"provider.cache", "pool.child", "pool.root"}, got.Teardown)
	assert.Equal(t, uint64(6), got.Reclaimed)
	assert.Equal(t, 1, got.CacheLen)

	assert.Equal(t, 2, got.Pools["root"].Idle)
	assert.Equal(t, uint64(4), got.Pools["root"].Allocated)
	assert.Equal(t, uint64(4), got.Pools["child"].Returned)
	assert.Zero(t, got.Pools["child"].InUse)

	assert.Equal(t, 1.0, got.Metrics["pchain_registries_created_total"])
	assert.Equal(t, 1.0, got.Metrics["pchain_registries_destroyed_total"])
	assert.Equal(t, 0.0, got.Metrics["pchain_registries_live"])
	assert.Equal(t, 2.0, got.Metrics[`pchain_purged_total{provider="pool.child"}`])
	assert.Equal(t, 2.0, got.Metrics[`pchain_purged_total{provider="provider.cache"}`])

	assert.False(t, pchain.Alive(), "demo must not leave a registry behind")
}

func TestDemo_Text(t *testing.T) {
	out, err := run(t, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "teardown:  provider.cache, pool.child, pool.root")
	assert.Contains(t, out, "reclaimed: 6")
	assert.NotContains(t, out, "metric ")
}

func TestUnknownOutput(t *testing.T) {
	_, err := run(t, "demo", "--output", "xml")
	assert.ErrorIs(t, err, cli.ErrUnknownOutput)
}

func TestStress_FlagsWin(t *testing.T) {
	out, err := run(t, "stress", "-w", "4", "-n", "200", "-o", "yaml")
	require.NoError(t, err)

	var got stressOut
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.Workers)
	assert.Equal(t, 200, got.Iterations)
	assert.Equal(t, uint64(1600), got.Operations)
	assert.Zero(t, got.Remaining)
	assert.False(t, pchain.Alive())
}

func TestStress_ConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pchain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stress:\n  workers: 3\n  iterations: 50\n"), 0o600))
	t.Setenv("PCHAIN_STRESS_ITERATIONS", "7")

	out, err := run(t, "--config", path, "stress", "--output", "yaml")
	require.NoError(t, err)

	var got stressOut
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Workers)
	assert.Equal(t, 7, got.Iterations)
	assert.Equal(t, uint64(42), got.Operations)
}

func TestStress_InvalidCounts(t *testing.T) {
	_, err := run(t, "stress", "--workers=-1")
	assert.ErrorIs(t, err, cli.ErrInvalidStress)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pchainctl test\n", out)
}
