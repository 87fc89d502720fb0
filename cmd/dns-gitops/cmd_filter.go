package main

import (
	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns/yamlzone"
)

func newCmdFilter() *cobra.Command {
	return &cobra.Command{
		Use:   "filter <zone>",
		Short: "Print the desired zone after processing as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := loadManager(cmd, false)
			if err != nil {
				return err
			}
			zone, err := m.Desired(cmd.Context(), dns.NewZone(args[0]).Name)
			if err != nil {
				return err
			}
			data, err := yamlzone.Marshal(zone)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
