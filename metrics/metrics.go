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

// Package metrics exposes registry activity as Prometheus metrics.
// A Collector is both the apis.Hooks and the apis.Observer of the
// registries it is configured into.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"dirpx.dev/pchain/apis"
)

// DefaultNamespace is the metric namespace used when none is given.
const DefaultNamespace = "pchain"

// Collector records registry lifecycle and provider events.
type Collector struct {
	created      prometheus.Counter
	destroyed    prometheus.Counter
	live         prometheus.Gauge
	registered   *prometheus.CounterVec
	deregistered *prometheus.CounterVec
	providers    *prometheus.GaugeVec
	purged       *prometheus.CounterVec
}

var (
	_ apis.Hooks    = (*Collector)(nil)
	_ apis.Observer = (*Collector)(nil)
)

// New creates a Collector and registers its metrics with reg.
// An empty namespace means DefaultNamespace.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	c := &Collector{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registries_created_total",
			Help:      "Registries constructed.",
		}),
		destroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registries_destroyed_total",
			Help:      "Registries torn down.",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registries_live",
			Help:      "Registries constructed and not yet torn down.",
		}),
		registered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "providers_registered_total",
			Help:      "Provider registrations by provider name.",
		}, []string{"provider"}),
		deregistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "providers_deregistered_total",
			Help:      "Provider deregistrations by provider name.",
		}, []string{"provider"}),
		providers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "providers",
			Help:      "Currently registered providers by provider name.",
		}, []string{"provider"}),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_total",
			Help:      "Items reclaimed by CleanupAll by provider name.",
		}, []string{"provider"}),
	}

	for _, col := range []prometheus.Collector{
		c.created, c.destroyed, c.live, c.registered, c.deregistered, c.providers, c.purged,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("pchain(metrics): registering collector: %w", err)
		}
	}
	return c, nil
}

// TableCreated implements apis.Hooks.
func (c *Collector) TableCreated() {
	c.created.Inc()
	c.live.Inc()
}

// TableDestroyed implements apis.Hooks.
func (c *Collector) TableDestroyed() {
	c.destroyed.Inc()
	c.live.Dec()
}

// ProviderRegistered implements apis.Observer.
func (c *Collector) ProviderRegistered(name string) {
	name = label(name)
	c.registered.WithLabelValues(name).Inc()
	c.providers.WithLabelValues(name).Inc()
}

// ProviderDeregistered implements apis.Observer.
func (c *Collector) ProviderDeregistered(name string) {
	name = label(name)
	c.deregistered.WithLabelValues(name).Inc()
	c.providers.WithLabelValues(name).Dec()
}

// ProviderPurged implements apis.Observer.
func (c *Collector) ProviderPurged(name string, n uint64) {
	if n == 0 {
		return
	}
	c.purged.WithLabelValues(label(name)).Add(float64(n))
}

// label maps unnamed providers to a fixed label value.
func label(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}
