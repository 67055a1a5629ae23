package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/artpar/rentdesk/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the rentdesk configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Backend is reachable (optional)

Examples:
  rentdesk validate
  rentdesk validate --config /etc/rentdesk/rentdesk.yaml --check-api`,
	RunE: runValidate,
}

var validateCheckAPI bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckAPI, "check-api", false, "check if the backend is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error

	if _, statErr := os.Stat(cfgFile); statErr == nil {
		fmt.Printf("Validating %s...\n\n", cfgFile)
		fmt.Printf("  %s Config file exists\n", checkMark)
		cfg, err = config.Load(cfgFile)
	} else if config.HasEnvConfig() {
		fmt.Printf("Validating %sAPI_URL environment...\n\n", config.EnvPrefix)
		cfg, err = config.LoadFromEnv()
	} else {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	if err != nil {
		fmt.Printf("  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config valid\n", checkMark)

	fmt.Printf("  %s API: %s (timeout %s)\n", checkMark, cfg.API.BaseURL, cfg.API.Timeout)
	domains := make([]string, 0, len(cfg.API.Domains))
	for name := range cfg.API.Domains {
		domains = append(domains, name)
	}
	sort.Strings(domains)
	for _, name := range domains {
		fmt.Printf("      %s -> %s\n", name, cfg.API.Domains[name])
	}
	fmt.Printf("  %s Cache: stale %s, gc %s, refetch %s\n", checkMark, cfg.Cache.StaleTime, cfg.Cache.GCDelay, cfg.Cache.RefetchOnInvalidate)
	fmt.Printf("  %s Session store: %s (sealed: %s)\n", checkMark, cfg.Session.Store, yesNo(cfg.Session.Secret != ""))

	if validateCheckAPI {
		if err := checkAPIReachable(cmd.Context(), cfg.API.BaseURL); err != nil {
			fmt.Printf("  %s API reachable\n", crossMark)
			fmt.Printf("      Error: %v\n", err)
		} else {
			fmt.Printf("  %s API reachable\n", checkMark)
		}
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

func checkAPIReachable(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
