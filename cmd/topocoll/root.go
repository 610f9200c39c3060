package main

import (
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands.
type app struct {
	cfgPath string
	cfg     *Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "topocoll",
		Short:         "Topology-aware collective communication optimizer",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(a.cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.cfgPath, "config", "",
		"TOML configuration file")
	cmd.AddCommand(newBenchCmd(a))
	cmd.AddCommand(newScenarioCmd(a))
	cmd.AddCommand(newMeasureCmd(a))
	return cmd
}
