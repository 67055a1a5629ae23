package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/rentdesk/bootstrap"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	quiet        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rentdesk",
	Short: "Command line client for the car rental backend",
	Long: `rentdesk talks to the car rental REST backend through a shared,
tag-invalidated query cache.

Configuration is read from rentdesk.yaml (or --config), falling back to
RENTDESK_* environment variables.

Quick start:
  rentdesk session login --user u_42 --role admin
  rentdesk vehicles list --status Available
  rentdesk dashboard admin
  rentdesk watch --interval 30s`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "rentdesk.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress mutation notices")
}

// openApp wires the data layer for one command invocation.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	opts := bootstrap.Options{ConfigPath: cfgFile}
	if !quiet {
		opts.Notify = printNotice
	}
	app, err := bootstrap.New(cmd.Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return app, nil
}

func printNotice(n bootstrap.Notice) {
	mark := checkMark
	if n.Level == "error" {
		mark = crossMark
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", mark, n.Message)
}
