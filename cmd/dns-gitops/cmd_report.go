package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/dns"
	"github.com/yuriy-kovalchuk/dns-gitops/internal/nsreport"
)

func newCmdReport() *cobra.Command {
	var nameservers []string
	timeout := nsreport.DefaultTimeout

	cmd := &cobra.Command{
		Use:   "report [zone]",
		Short: "Check that the live nameservers answer every local record consistently",
		Long: "Queries the nameservers of the zone's local apex NS record, or the ones\n" +
			"given with --nameserver, for every record of the processed local zone.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, log, err := loadManager(cmd, false)
			if err != nil {
				return err
			}
			names := m.ZoneNames()
			if len(args) > 0 {
				names = []string{dns.NewZone(args[0]).Name}
			}

			q := nsreport.NewQuerier(ctrl.Log.WithName("nsreport"), timeout)
			out := cmd.OutOrStdout()
			rule := strings.Repeat("=", 80)
			for _, name := range names {
				zone, err := m.Desired(cmd.Context(), name)
				if err != nil {
					return err
				}
				servers := nameservers
				if len(servers) == 0 {
					servers = nsreport.ApexNameservers(zone)
				}
				if len(servers) == 0 {
					return fmt.Errorf("zone %s: no apex NS record in the local zone, pass --nameserver", name)
				}
				log.V(1).Info("querying nameservers", "zone", name, "servers", servers)

				report, err := q.Run(cmd.Context(), zone, servers)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n  ZONE: %s\n%s\n", rule, name, rule)
				if err := report.Write(out); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&nameservers, "nameserver", nil, "Nameserver to query, host or host:port (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "Timeout of a single query")
	return cmd
}
