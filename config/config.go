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

package config

import (
	"log/slog"

	"dirpx.dev/pchain/apis"
	"dirpx.dev/pchain/naming"
)

const (
	// DefaultCapacity represents the default for Capacity.
	// Registration happens at module load, so a handful of slots is typical.
	DefaultCapacity = 16
)

// NewConfig constructs an apis.Config from the given options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return Complete(cfg)
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		Logger:   slog.Default(),
		Hooks:    apis.NopHooks{},
		Observer: apis.NopObserver{},
		Resolver: naming.Default(),
		Strict:   DefaultStrict,
		Capacity: DefaultCapacity,
	}
}

// Complete replaces nil collaborators and invalid values in cfg with
// their defaults. Strict is left as given.
func Complete(cfg apis.Config) apis.Config {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Hooks == nil {
		cfg.Hooks = apis.NopHooks{}
	}
	if cfg.Observer == nil {
		cfg.Observer = apis.NopObserver{}
	}
	if cfg.Resolver == nil {
		cfg.Resolver = naming.Default()
	}
	if cfg.Capacity < 0 {
		cfg.Capacity = DefaultCapacity
	}
	return cfg
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithLogger sets the Logger option. A nil logger resets to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *apis.Config) {
		c.Logger = l
	}
}

// WithHooks sets the Hooks option. Multiple hooks are combined in order.
func WithHooks(hooks ...apis.Hooks) Option {
	return func(c *apis.Config) {
		switch len(hooks) {
		case 0:
			c.Hooks = nil
		case 1:
			c.Hooks = hooks[0]
		default:
			c.Hooks = apis.MultiHooks(hooks)
		}
	}
}

// WithObserver sets the Observer option.
func WithObserver(o apis.Observer) Option {
	return func(c *apis.Config) {
		c.Observer = o
	}
}

// WithResolver sets the Resolver option.
func WithResolver(r apis.Resolver) Option {
	return func(c *apis.Config) {
		c.Resolver = r
	}
}

// WithStrict sets the Strict option.
func WithStrict(strict bool) Option {
	return func(c *apis.Config) {
		c.Strict = strict
	}
}

// WithCapacity sets the Capacity option.
// A negative value resets to the default.
func WithCapacity(n int) Option {
	return func(c *apis.Config) {
		if n < 0 {
			c.Capacity = DefaultCapacity
			return
		}
		c.Capacity = n
	}
}
