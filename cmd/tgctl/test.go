package main

import (
	"github.com/spf13/cobra"
)

func newExperimentsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "experiments",
		Short: "List TEST experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.login(cmd); err != nil {
				return err
			}
			experiments, err := a.platform.Test.GetExperiments(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, experiments)
		},
	}
}
