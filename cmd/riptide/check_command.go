package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"riptide/internal/config"
	"riptide/internal/preflight"
)

func newCheckCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run readiness checks against the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}

			results := preflight.RunAll(cmd.Context(), cfg)

			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Check", "Status", "Detail"})
			for _, result := range results {
				tw.AppendRow(table.Row{result.Name, checkStatus(result), result.Detail})
			}
			tw.Render()

			if !preflight.Passed(results) {
				return fmt.Errorf("readiness checks failed")
			}
			return nil
		},
	}
}

func checkStatus(result preflight.Result) string {
	switch {
	case result.Passed:
		return "OK"
	case result.Advisory:
		return "WARN"
	default:
		return "FAIL"
	}
}
