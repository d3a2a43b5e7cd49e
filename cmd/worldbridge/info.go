package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func infoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the library description and the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			about, err := a.newWorld().About()
			if err != nil {
				return err
			}
			settings, err := json.MarshalIndent(a.cfg, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nconfig: %s\n", about, settings)
			return err
		},
	}
}
