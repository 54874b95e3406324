package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"autogif/internal/config"
	"autogif/internal/effects"
	"autogif/internal/render"
	"autogif/internal/tui"
	"autogif/pkg/csvplan"
	"autogif/pkg/transcript"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run project validations",
	}

	cmd.AddCommand(newValidateConfigCmd())
	cmd.AddCommand(newValidatePlanCmd())
	return cmd
}

func newValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Check autogif.yaml for unknown effects, bad colours, missing fonts and out of range values",
		Args:  cobra.NoArgs,
		RunE:  runValidateConfig,
	}
}

func newValidatePlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <plan.csv|plan.yaml>",
		Short: "Check a batch plan: columns, clip paths, transcripts and effect slugs",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidatePlan,
	}
}

func runValidateConfig(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadProject()
	if err != nil {
		return err
	}

	results := cfg.ValidateStrict(pp.Root, effects.Default(), render.ValidFilenameTokens())
	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), struct {
			Project string                    `json:"project"`
			Results []config.ValidationResult `json:"results"`
		}{pp.Root, results}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\n", pp.ConfigFile)
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no issues found")
		}
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-7s %s\n", r.Level, r.Message)
		}
	}

	if config.HasErrors(results) {
		return errors.New("configuration has errors")
	}
	return nil
}

// planIssue is one finding against a plan. Loader findings carry only the
// line number.
type planIssue struct {
	Row     int    `json:"row"`
	Line    int    `json:"line,omitempty"`
	Level   string `json:"level"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func runValidatePlan(cmd *cobra.Command, args []string) error {
	planPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve plan path: %w", err)
	}

	rows, loadErr := csvplan.Load(planPath)
	var issues []planIssue
	var verrs csvplan.ValidationErrors
	switch {
	case errors.As(loadErr, &verrs):
		for _, v := range verrs.Issues() {
			issues = append(issues, planIssue{Line: v.Line, Level: "error", Field: v.Field, Message: v.Message})
		}
	case loadErr != nil:
		return loadErr
	}

	issues = append(issues, validatePlanRows(rows, filepath.Dir(planPath), effects.Default())...)

	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), struct {
			Plan   string      `json:"plan"`
			Rows   int         `json:"rows"`
			Issues []planIssue `json:"issues"`
		}{planPath, len(rows), issues}); err != nil {
			return err
		}
	} else {
		writePlanIssues(cmd.OutOrStdout(), planPath, len(rows), issues)
	}

	for _, is := range issues {
		if is.Level == "error" {
			return errors.New("plan has errors")
		}
	}
	return nil
}

// validatePlanRows checks what the loader cannot: that clip paths exist,
// transcripts parse and effects are registered.
func validatePlanRows(rows []csvplan.Row, base string, registry *effects.Registry) []planIssue {
	var issues []planIssue
	for _, row := range rows {
		r := row.Resolve(base)
		add := func(level, field, format string, args ...any) {
			issues = append(issues, planIssue{Row: r.Index, Line: r.Line, Level: level, Field: field, Message: fmt.Sprintf(format, args...)})
		}

		if r.Video != "" {
			if _, err := os.Stat(r.Video); err != nil {
				add("error", "video", "%v", err)
			}
		}
		if r.Transcript != "" {
			words, err := transcript.Load(r.Transcript)
			switch {
			case err != nil:
				add("error", "transcript", "%v", err)
			case len(words) == 0:
				add("warning", "transcript", "no words; the clip renders without captions")
			}
		}
		if r.Effect != "" {
			chain, err := effects.ParseChain(r.Effect)
			if err == nil {
				_, err = registry.Resolve(chain, r.Intensity)
			}
			if err != nil {
				add("error", "effect", "%v", err)
			}
		}
	}
	return issues
}

func writePlanIssues(out io.Writer, planPath string, rows int, issues []planIssue) {
	fmt.Fprintf(out, "Plan: %s (%d rows)\n", planPath, rows)
	if len(issues) == 0 {
		fmt.Fprintln(out, "no issues found")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tLINE\tLEVEL\tFIELD\tMESSAGE")
	for _, is := range issues {
		row := "-"
		if is.Row > 0 {
			row = fmt.Sprintf("%03d", is.Row)
		}
		line := "-"
		if is.Line > 0 {
			line = fmt.Sprintf("%d", is.Line)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row, line, is.Level, tui.NonEmptyOrDash(is.Field), is.Message)
	}
	tw.Flush()
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
