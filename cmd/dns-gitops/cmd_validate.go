package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCmdValidate() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config and every source zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, log, err := loadManager(cmd, false)
			if err != nil {
				return err
			}
			for _, name := range m.ZoneNames() {
				zone, err := m.Desired(cmd.Context(), name)
				if err != nil {
					return err
				}
				if err := zone.Validate(); err != nil {
					return err
				}
				log.Info("zone is valid", "zone", name, "records", zone.Len())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Config is valid")
			return nil
		},
	}
}
