package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/artpar/rentdesk/app"
	"github.com/artpar/rentdesk/core/registry"
	"github.com/artpar/rentdesk/domain/tag"
	"github.com/spf13/cobra"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List backend endpoints and audit their cache tags",
	Long: `List every backend endpoint with the cache tags it provides or
invalidates, then audit that each mutation refreshes every query whose
data it changes. Exits non-zero when the audit has findings.

No configuration or network access is needed.`,
	RunE: runEndpoints,
}

var endpointsKind string

func init() {
	rootCmd.AddCommand(endpointsCmd)

	endpointsCmd.Flags().StringVar(&endpointsKind, "kind", "", "only list query or mutation endpoints")
}

type endpointsView struct {
	Endpoints []registry.Endpoint `json:"endpoints"`
	Findings  []string            `json:"findings"`
}

func runEndpoints(cmd *cobra.Command, args []string) error {
	reg := registry.New()
	for _, d := range app.Definitions() {
		if err := reg.Register(d.Endpoint()); err != nil {
			return fmt.Errorf("register endpoints: %w", err)
		}
	}

	view := endpointsView{Findings: []string{}}
	if endpointsKind != "" {
		view.Endpoints = reg.ByKind(registry.Kind(endpointsKind))
	} else {
		view.Endpoints = reg.List()
	}
	for _, f := range reg.Audit() {
		view.Findings = append(view.Findings, f.String())
	}

	err := render(view, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "NAME\tKIND\tMETHOD\tPATH\tTAGS")
		fmt.Fprintln(w, "----\t----\t------\t----\t----")
		for _, ep := range view.Endpoints {
			tags := ep.Provides
			if ep.Kind == registry.KindMutation {
				tags = ep.Invalidates
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ep.Name, ep.Kind, ep.Method, ep.Path, joinTypes(tags))
		}
	})
	if err != nil {
		return err
	}

	if len(view.Findings) > 0 {
		if tableOutput() {
			fmt.Println()
			for _, f := range view.Findings {
				fmt.Printf("  %s %s\n", crossMark, f)
			}
		}
		return fmt.Errorf("tag coverage audit: %d finding(s)", len(view.Findings))
	}
	if tableOutput() {
		fmt.Printf("\n  %s %d endpoints, tag coverage complete\n", checkMark, len(view.Endpoints))
	}
	return nil
}

func joinTypes(types []tag.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
