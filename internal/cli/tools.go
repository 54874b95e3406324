package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"autogif/internal/config"
	"autogif/internal/paths"
	"autogif/internal/tools"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the external tools used to decode video",
	}

	cmd.AddCommand(newToolsListCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resolved tool statuses",
		RunE:  runToolsList,
	}
	return cmd
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	// A broken project config should not hide PATH lookups.
	var overrides tools.Overrides
	if pp, err := paths.Resolve(projectDir); err == nil {
		if cfg, err := config.LoadProject(pp.ConfigFile, pp.Root); err == nil {
			overrides = toolOverrides(cfg)
		}
	}

	statuses := tools.Detect(cmd.Context(), overrides)

	if outputJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printStatusTable(cmd, statuses)
	return nil
}

func printStatusTable(cmd *cobra.Command, statuses []tools.Status) {
	if len(statuses) == 0 {
		cmd.Println("(no tool statuses)")
		return
	}

	rows := make([]tools.Status, len(statuses))
	copy(rows, statuses)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Tool < rows[j].Tool
	})

	cmd.Printf("%-10s %-8s %-12s %-7s %s\n", "Tool", "Source", "Version", "OK", "Path")
	for _, st := range rows {
		ok := "no"
		if st.Satisfied {
			ok = "yes"
		}
		path := st.Path
		if path == "" {
			path = "(missing)"
		}
		cmd.Printf("%-10s %-8s %-12s %-7s %s\n", st.Tool, st.Source, st.Version, ok, path)
		if st.Error != "" {
			cmd.Printf("  error: %s\n", st.Error)
		}
		for _, note := range st.Notes {
			cmd.Printf("  note: %s\n", note)
		}
	}
}
