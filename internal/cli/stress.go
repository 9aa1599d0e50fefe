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
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dirpx.dev/pchain"
	"dirpx.dev/pchain/config"
)

var (
	// ErrInvalidStress is returned for non-positive worker or iteration counts.
	ErrInvalidStress = errors.New("pchainctl: workers and iterations must be positive")
	// ErrChainNotEmpty is returned when providers remain after the stress run.
	ErrChainNotEmpty = errors.New("pchainctl: chain not empty after stress run")
)

// ticket is the provider registered by stress workers.
type ticket struct{}

func (*ticket) Purge() uint64 { return 0 }

// stressReport is the outcome of one stress run.
type stressReport struct {
	Registry   string `yaml:"registry"`
	Workers    int    `yaml:"workers"`
	Iterations int    `yaml:"iterations"`
	Operations uint64 `yaml:"operations"`
	Remaining  int    `yaml:"remaining"`
	Elapsed    string `yaml:"elapsed"`
}

func (r *stressReport) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "registry:   %s\nworkers:    %d\niterations: %d\noperations: %d\nremaining:  %d\nelapsed:    %s\n",
		r.Registry, r.Workers, r.Iterations, r.Operations, r.Remaining, r.Elapsed)
	return err
}

func (a *app) stressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Register and deregister providers from concurrent workers",
		Long: `stress starts --workers goroutines that each register and immediately
deregister a provider --iterations times against the process-wide
registry. The run fails if any provider is left behind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.runStress(cmd)
			if err != nil {
				return err
			}
			if err := write(cmd.OutOrStdout(), a.output, report); err != nil {
				return err
			}
			if report.Remaining != 0 {
				return fmt.Errorf("%w: %d left", ErrChainNotEmpty, report.Remaining)
			}
			return nil
		},
	}
	cmd.Flags().IntP("workers", "w", 0, "number of concurrent workers")
	cmd.Flags().IntP("iterations", "n", 0, "register/deregister pairs per worker")
	_ = a.v.BindPFlag("stress.workers", cmd.Flags().Lookup("workers"))
	_ = a.v.BindPFlag("stress.iterations", cmd.Flags().Lookup("iterations"))
	return cmd
}

func (a *app) runStress(cmd *cobra.Command) (*stressReport, error) {
	workers, iterations := a.file.Stress.Workers, a.file.Stress.Iterations
	if workers <= 0 || iterations <= 0 {
		return nil, fmt.Errorf("%w: workers=%d iterations=%d", ErrInvalidStress, workers, iterations)
	}

	opts, err := a.file.Options(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
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
	defer func() { _ = tok.Release() }()
	reg := tok.Registry()

	var ops atomic.Uint64
	start := time.Now()
	g, ctx := errgroup.WithContext(cmd.Context())
	for range workers {
		g.Go(func() error {
			for range iterations {
				if err := ctx.Err(); err != nil {
					return err
				}
				h, err := reg.Register(&ticket{})
				if err != nil {
					return err
				}
				if err := reg.Deregister(h); err != nil {
					return err
				}
				ops.Add(2)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pchainctl: stress: %w", err)
	}

	return &stressReport{
		Registry:   reg.ID(),
		Workers:    workers,
		Iterations: iterations,
		Operations: ops.Load(),
		Remaining:  reg.Count(),
		Elapsed:    time.Since(start).Round(time.Microsecond).String(),
	}, nil
}
