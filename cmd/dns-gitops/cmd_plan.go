package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/pipeline"
)

func newCmdPlan() *cobra.Command {
	return &cobra.Command{
		Use:   "plan [zone]",
		Short: "Show the changes a sync would make",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, log, err := loadManager(cmd, false)
			if err != nil {
				return err
			}
			plans, err := m.PlanAll(cmd.Context(), zoneArg(args))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			changed := 0
			for _, p := range plans {
				if s := p.Format(); s != "" {
					fmt.Fprint(out, s)
					changed++
				}
			}
			if changed == 0 {
				fmt.Fprintln(out, "No changes")
			}
			for _, v := range pipeline.ThresholdViolations(plans) {
				log.Info("safety threshold exceeded", "violation", v.String())
				fmt.Fprintf(out, "WARNING: %s\n", v)
			}
			return nil
		},
	}
}
