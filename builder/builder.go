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

package builder

import (
	"dirpx.dev/pchain/apis"
	"dirpx.dev/pchain/config"
	"dirpx.dev/pchain/registry"
)

// New creates and returns a new instance of an apis.Builder.
func New() apis.Builder {
	return &builder{}
}

// builder is an empty struct to be used as a receiver for builder methods.
type builder struct{}

// BuildRegistry builds and returns a new, empty apis.Registry for cfg.
// Nil collaborators in cfg are replaced with their defaults. If ext
// implements apis.Hooks it is notified after cfg.Hooks.
func (b *builder) BuildRegistry(cfg apis.Config, ext any) apis.Registry {
	cfg = config.Complete(cfg)
	if h, ok := ext.(apis.Hooks); ok && h != nil {
		cfg.Hooks = apis.MultiHooks{cfg.Hooks, h}
	}
	return registry.New(cfg)
}
