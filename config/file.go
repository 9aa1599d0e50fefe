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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PCHAIN"

var (
	// ErrInvalidLogFormat is returned for a log format other than "text" or "json".
	ErrInvalidLogFormat = errors.New("pchain(config): invalid log format")
)

// File is the on-disk / environment configuration of a pchain binary.
type File struct {
	Strict    bool        `mapstructure:"strict" yaml:"strict"`
	Capacity  int         `mapstructure:"capacity" yaml:"capacity"`
	LogLevel  string      `mapstructure:"log_level" yaml:"log_level"`   // debug, info, warn, error
	LogFormat string      `mapstructure:"log_format" yaml:"log_format"` // "text" (default) or "json"
	Stress    StressFile  `mapstructure:"stress" yaml:"stress"`
	Metrics   MetricsFile `mapstructure:"metrics" yaml:"metrics"`
}

// StressFile configures the concurrent register/deregister exercise.
type StressFile struct {
	Workers    int `mapstructure:"workers" yaml:"workers"`
	Iterations int `mapstructure:"iterations" yaml:"iterations"`
}

// MetricsFile configures metric collection.
type MetricsFile struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// Defaults returns the File used when no configuration is present.
func Defaults() File {
	return File{
		Strict:    DefaultStrict,
		Capacity:  DefaultCapacity,
		LogLevel:  "info",
		LogFormat: "text",
		Stress: StressFile{
			Workers:    8,
			Iterations: 10000,
		},
		Metrics: MetricsFile{
			Namespace: "pchain",
		},
	}
}

// Load reads configuration from path (YAML) layered over Defaults and
// PCHAIN_* environment variables. An empty path reads only the
// environment. Nested keys map to env names with "_", e.g.
// PCHAIN_STRESS_WORKERS.
func Load(path string) (File, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, so flags bound to
// v take precedence over file and environment values.
func LoadWith(v *viper.Viper, path string) (File, error) {
	d := Defaults()
	v.SetDefault("strict", d.Strict)
	v.SetDefault("capacity", d.Capacity)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("stress.workers", d.Stress.Workers)
	v.SetDefault("stress.iterations", d.Stress.Iterations)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return File{}, fmt.Errorf("pchain(config): reading %s: %w", path, err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("pchain(config): decoding: %w", err)
	}
	return f, nil
}

// Logger builds a slog.Logger writing to w according to the file's
// log level and format.
func (f File) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if f.LogLevel != "" {
		if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
			return nil, fmt.Errorf("pchain(config): log level %q: %w", f.LogLevel, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(f.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogFormat, f.LogFormat)
	}
}

// Options converts the file into registry options, logging to w.
func (f File) Options(w io.Writer) ([]Option, error) {
	logger, err := f.Logger(w)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithLogger(logger),
		WithStrict(f.Strict),
		WithCapacity(f.Capacity),
	}, nil
}
