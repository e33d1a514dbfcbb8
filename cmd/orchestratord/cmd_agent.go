package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/agentcore/internal/adapter"
	"github.com/user/agentcore/pkg/agentcli"
)

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentListCmd, agentProbeCmd)
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Inspect registered coding agents",
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agent kinds and their cached availability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		orchCfg := cfg.ToOrchestratorConfig()
		registry := adapter.DefaultRegistry(orchCfg.AvailabilityCacheTTL)

		ctx := context.Background()
		snapshot := registry.AvailabilitySnapshot(ctx)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT\tINSTALLED\tVERSION\tERROR")
		for _, kind := range registry.List() {
			a := snapshot[kind]
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", kind, a.Installed, a.Version, a.Error)
		}
		return w.Flush()
	},
}

var agentProbeCmd = &cobra.Command{
	Use:   "probe <agent>",
	Short: "Force a fresh availability probe for one agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := agentcli.AgentKind(args[0])
		if !kind.Valid() {
			return fmt.Errorf("unknown agent kind: %s", args[0])
		}

		// A cache TTL of zero forces Availability to always re-probe.
		registry := adapter.DefaultRegistry(0)

		a := registry.Availability(context.Background(), kind)
		if a.Installed {
			fmt.Fprintf(os.Stdout, "%s: installed (version %s)\n", kind, a.Version)
		} else {
			fmt.Fprintf(os.Stdout, "%s: not available (%s)\n", kind, a.Error)
		}
		return nil
	},
}
