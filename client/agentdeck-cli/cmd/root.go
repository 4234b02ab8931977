package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "agentdeck-cli",
	Short: "A CLI client to interact with the AgentDeck task server",
	Long:  `A command-line interface for submitting tasks to the simulated agent team and inspecting the server.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000", "task server base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("AGENTDECK_TOKEN"), "JWT sent to the server when auth is enabled")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
}
