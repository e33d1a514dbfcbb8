package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/agentcore/internal/store"
	"github.com/user/agentcore/internal/types"
	"github.com/user/agentcore/pkg/agentcli"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionClearCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage per-project agent sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List a project's per-agent session state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		messages, err := store.NewSQLiteMessageStore(filepath.Join(cfg.DataDir, "messages.db"))
		if err != nil {
			return fmt.Errorf("open message store: %w", err)
		}
		defer messages.Close()

		projectID := types.ProjectID(args[0])
		latest, err := messages.LatestSessionInfo(context.Background(), projectID)
		if err != nil {
			return fmt.Errorf("latest session info for %s: %w", projectID, err)
		}
		if len(latest) == 0 {
			fmt.Println("No sessions recorded for this project.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT\tSEQ")
		for agent, msg := range latest {
			fmt.Fprintf(w, "%s\t%d\n", agent, msg.Seq)
		}
		return w.Flush()
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <project> <agent>",
	Short: "Delete persisted messages for one project+agent session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		messages, err := store.NewSQLiteMessageStore(filepath.Join(cfg.DataDir, "messages.db"))
		if err != nil {
			return fmt.Errorf("open message store: %w", err)
		}
		defer messages.Close()

		projectID := types.ProjectID(args[0])
		agent := agentcli.AgentKind(args[1])
		if !agent.Valid() {
			return fmt.Errorf("unknown agent kind: %s", args[1])
		}

		if err := messages.Clear(context.Background(), projectID, agent); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Cleared %s session for project %s.\n", agent, projectID)
		return nil
	},
}
