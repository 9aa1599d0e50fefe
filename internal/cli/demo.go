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

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"dirpx.dev/pchain"
	"dirpx.dev/pchain/apis"
	"dirpx.dev/pchain/config"
	"dirpx.dev/pchain/metrics"
	"dirpx.dev/pchain/providers/cache"
	"dirpx.dev/pchain/providers/pool"
)

const (
	demoBufSize  = 4096
	demoBuffers  = 4
	demoChildMax = 2
	demoTTL      = time.Millisecond
)

// demoReport is the outcome of one demo run.
type demoReport struct {
	Registry  string                `yaml:"registry"`
	Providers []string              `yaml:"providers"`
	Reclaimed uint64                `yaml:"reclaimed"`
	Pools     map[string]pool.Stats `yaml:"pools"`
	CacheLen  int                   `yaml:"cache_len"`
	Teardown  []string              `yaml:"teardown"`
	Metrics   map[string]float64    `yaml:"metrics,omitempty"`
}

func (r *demoReport) writeText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "registry:  %s\n", r.Registry)
	fmt.Fprintf(&b, "providers: %s\n", strings.Join(r.Providers, ", "))
	fmt.Fprintf(&b, "reclaimed: %d\n", r.Reclaimed)
	for _, name := range []string{"root", "child"} {
		s := r.Pools[name]
		fmt.Fprintf(&b, "pool %-5s idle=%d in_use=%d allocated=%d returned=%d lost=%d\n",
			name, s.Idle, s.InUse, s.Allocated, s.Returned, s.Lost)
	}
	fmt.Fprintf(&b, "cache:     %d live\n", r.CacheLen)
	fmt.Fprintf(&b, "teardown:  %s\n", strings.Join(r.Teardown, ", "))
	for _, k := range sortedKeys(r.Metrics) {
		fmt.Fprintf(&b, "metric %s %g\n", k, r.Metrics[k])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// teardownRecorder records deregistrations in order and forwards every
// event to next.
type teardownRecorder struct {
	next apis.Observer

	mu    sync.Mutex
	names []string
}

func (t *teardownRecorder) ProviderRegistered(name string) {
	t.next.ProviderRegistered(name)
}

func (t *teardownRecorder) ProviderDeregistered(name string) {
	t.mu.Lock()
	t.names = append(t.names, name)
	t.mu.Unlock()
	t.next.ProviderDeregistered(name)
}

func (t *teardownRecorder) ProviderPurged(name string, n uint64) {
	t.next.ProviderPurged(name, n)
}

func (t *teardownRecorder) deregistered() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.names...)
}

func (a *app) demoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Build layered providers, purge them and tear the registry down",
		Long: `demo registers a root buffer pool, a child pool drawing from it and a
string cache, runs CleanupAll once and releases the last token.

The report lists the providers in registration order, the total reclaimed
and the order in which teardown destroyed them (most recent first).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.runDemo(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), a.output, report)
		},
	}
	cmd.Flags().Bool("metrics", false, "collect Prometheus metrics and include them in the report")
	_ = a.v.BindPFlag("metrics.enabled", cmd.Flags().Lookup("metrics"))
	return cmd
}

func (a *app) runDemo(logOut io.Writer) (*demoReport, error) {
	opts, err := a.file.Options(logOut)
	if err != nil {
		return nil, err
	}

	rec := &teardownRecorder{next: apis.NopObserver{}}
	var gatherer *prometheus.Registry
	if a.file.Metrics.Enabled {
		gatherer = prometheus.NewRegistry()
		col, err := metrics.New(gatherer, a.file.Metrics.Namespace)
		if err != nil {
			return nil, err
		}
		rec.next = col
		opts = append(opts, config.WithHooks(col))
	}
	opts = append(opts, config.WithObserver(rec))

	prev := pchain.Config()
	pchain.Shutdown()
	pchain.SetConfig(config.NewConfig(opts...))
	defer func() {
		pchain.Shutdown()
		pchain.SetConfig(prev)
	}()

	tok, err := pchain.Acquire()
	if err != nil {
		return nil, err
	}
	released := false
	defer func() {
		if !released {
			_ = tok.Release()
		}
	}()

	root, err := pool.New("root", demoBufSize, 0)
	if err != nil {
		return nil, err
	}
	child, err := pool.NewChild(root, "child", demoChildMax)
	if err != nil {
		return nil, err
	}
	names, err := cache.New[string](time.Minute)
	if err != nil {
		return nil, err
	}

	bufs := make([][]byte, demoBuffers)
	for i := range bufs {
		if bufs[i], err = child.Get(); err != nil {
			return nil, err
		}
	}
	for _, b := range bufs {
		if err := child.Put(b); err != nil {
			return nil, err
		}
	}
	names.Set("registry", tok.Registry().ID())
	names.SetWithTTL("session.a", "short-lived", demoTTL)
	names.SetWithTTL("session.b", "short-lived", demoTTL)
	time.Sleep(2 * demoTTL)

	report := &demoReport{Registry: tok.Registry().ID()}
	for _, e := range pchain.Providers() {
		report.Providers = append(report.Providers, e.Name)
	}
	report.Reclaimed = pchain.CleanupAll()
	report.Pools = map[string]pool.Stats{"root": root.Stats(), "child": child.Stats()}
	report.CacheLen = names.Len()

	released = true
	if err := tok.Release(); err != nil {
		return nil, err
	}
	report.Teardown = rec.deregistered()

	if gatherer != nil {
		families, err := gatherer.Gather()
		if err != nil {
			return nil, fmt.Errorf("pchainctl: gathering metrics: %w", err)
		}
		report.Metrics = flatten(families)
	}
	return report, nil
}
