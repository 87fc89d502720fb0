package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errDrift = errors.New("drift detected: live DNS differs from local zones")

func newCmdDrift() *cobra.Command {
	return &cobra.Command{
		Use:   "drift [zone]",
		Short: "Check whether live DNS differs from the local zones",
		Long: "Plans from the live targets back to the local sources.\n" +
			"Exit codes: 0 no drift, 1 drift detected, 2 error.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := loadManager(cmd, true)
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			plans, err := m.PlanAll(cmd.Context(), zoneArg(args))
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			out := cmd.OutOrStdout()
			drifted := false
			for _, p := range plans {
				if s := p.Format(); s != "" {
					if !drifted {
						fmt.Fprintln(out, "Changes needed to sync live -> local:")
					}
					drifted = true
					fmt.Fprint(out, s)
				}
			}
			if drifted {
				return errDrift
			}
			fmt.Fprintln(out, "No drift detected")
			return nil
		},
	}
}
