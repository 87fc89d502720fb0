package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/yuriy-kovalchuk/dns-gitops/internal/config"
	_ "github.com/yuriy-kovalchuk/dns-gitops/internal/dns/providers"
	"github.com/yuriy-kovalchuk/dns-gitops/internal/logging"
	"github.com/yuriy-kovalchuk/dns-gitops/internal/pipeline"
)

var Version = "dev"

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	opts := zap.Options{
		Development: true,
	}
	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.BindFlags(goFlags)

	cmd := &cobra.Command{
		Use:           "dns-gitops",
		Short:         "Plan DNS zone changes from a git source of truth",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(c *cobra.Command, _ []string) {
			ctrl.SetLogger(logging.SuppressNoise(zap.New(zap.UseFlagOptions(&opts))))
		},
	}

	defaultConfig := os.Getenv("DNS_GITOPS_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	cmd.PersistentFlags().String("config", defaultConfig, "Config file (env DNS_GITOPS_CONFIG)")
	cmd.PersistentFlags().AddGoFlagSet(goFlags)

	cmd.AddCommand(newCmdPlan(), newCmdDrift(), newCmdFilter(), newCmdReport(), newCmdValidate())
	return cmd
}

// loadManager reads the --config file and builds the pipeline from it.
func loadManager(cmd *cobra.Command, reverse bool) (*pipeline.Manager, logr.Logger, error) {
	log := ctrl.Log.WithName("setup")
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, log, fmt.Errorf("unable to load config: %w", err)
	}
	log.V(1).Info("loaded config", "path", path, "zones", len(cfg.Zones))
	if reverse {
		cfg = cfg.Drift()
	}

	m, err := pipeline.NewManager(ctrl.Log.WithName("pipeline"), cfg)
	if err != nil {
		return nil, log, fmt.Errorf("unable to create pipeline: %w", err)
	}
	return m, log, nil
}

func zoneArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}
