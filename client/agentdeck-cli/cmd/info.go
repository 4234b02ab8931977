package cmd

import (
	agenthttp "AgentDeck/backend/go/pkg/http"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type agentDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the agents the server can assign",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var agents map[string]agentDescriptor
		if err := newClient().GetJSON(cmd.Context(), "/api/agents", &agents); err != nil {
			return err
		}
		return printAgents(cmd.OutOrStdout(), agents)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var health struct {
			Status    string `json:"status"`
			Timestamp string `json:"timestamp"`
		}
		if err := newClient().GetJSON(cmd.Context(), "/health", &health); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", health.Status, health.Timestamp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(healthCmd)
}

func newClient() *agenthttp.Client {
	return agenthttp.NewClient(serverURL, agenthttp.WithToken(authToken), agenthttp.WithTimeout(timeout))
}

func printAgents(w io.Writer, agents map[string]agentDescriptor) error {
	types := make([]string, 0, len(agents))
	for t := range agents {
		types = append(types, t)
	}
	sort.Strings(types)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tICON\tNAME\tDESCRIPTION")
	for _, t := range types {
		a := agents[t]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t, a.Icon, a.Name, a.Description)
	}
	return tw.Flush()
}
