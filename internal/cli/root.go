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

// Package cli implements the pchainctl command tree.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dirpx.dev/pchain/config"
)

var (
	// ErrUnknownOutput is returned for an --output value other than text or yaml.
	ErrUnknownOutput = errors.New("pchainctl: unknown output format")
)

// app holds the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	output  string
	v       *viper.Viper
	file    config.File
}

// Execute builds the command tree and runs it against os.Args.
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

// NewRootCommand returns the pchainctl root command. Each call has its own
// viper instance, so commands built for tests do not share flag state.
func NewRootCommand(version string) *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "pchainctl",
		Short: "Exercise a process-wide purge chain",
		Long: `pchainctl drives the process-wide registry of purgeable providers.

Configuration is read from --config (YAML), then PCHAIN_* environment
variables (e.g. PCHAIN_STRESS_WORKERS), then flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML)")
	flags.StringVarP(&a.output, "output", "o", "text", "output format: text or yaml")
	flags.Bool("strict", false, "panic on registry usage violations")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	_ = a.v.BindPFlag("strict", flags.Lookup("strict"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log_format", flags.Lookup("log-format"))

	root.AddCommand(a.demoCommand(), a.stressCommand(), versionCommand(version))
	return root
}

func (a *app) load() error {
	switch a.output {
	case "text", "yaml":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, a.output)
	}
	f, err := config.LoadWith(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.file = f
	return nil
}
