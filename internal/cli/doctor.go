package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"autogif/internal/config"
	"autogif/internal/effects"
	"autogif/internal/paths"
	"autogif/internal/render"
	"autogif/internal/render/state"
	"autogif/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check project health",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	var checks []healthCheck

	cfg, cfgErr := config.LoadProject(pp.ConfigFile, pp.Root)
	checks = append(checks, checkTools(cmd.Context(), cfg))
	checks = append(checks, checkConfig(pp, cfg, cfgErr))

	if cfgErr != nil {
		// Can't proceed with further checks without config
		return writeDoctorResult(cmd, pp.Root, checks)
	}

	pp = paths.ApplyConfig(pp, cfg)
	checks = append(checks, checkOutputs(pp))

	return writeDoctorResult(cmd, pp.Root, checks)
}

func toolOverrides(cfg config.Config) tools.Overrides {
	return tools.Overrides{
		"ffmpeg":  cfg.Tools.FFmpeg,
		"ffprobe": cfg.Tools.FFprobe,
	}
}

func checkTools(ctx context.Context, cfg config.Config) healthCheck {
	statuses := tools.Detect(ctx, toolOverrides(cfg))

	var satisfied, total int
	var toolInfo []string
	for _, st := range statuses {
		total++
		if st.Satisfied {
			satisfied++
			label := st.Tool
			if st.Version != "" {
				label += " " + st.Version
			}
			toolInfo = append(toolInfo, label)
		}
	}

	if satisfied == total {
		return healthCheck{Name: "Tools", Status: "ok", Summary: joinComma(toolInfo)}
	}
	// Frame directories render without ffmpeg, so missing tools only warn.
	return healthCheck{
		Name:    "Tools",
		Status:  "warning",
		Summary: fmt.Sprintf("%d of %d tools satisfied; video files cannot be decoded", satisfied, total),
	}
}

func checkConfig(pp paths.ProjectPaths, cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	validations := cfg.ValidateStrict(pp.Root, effects.Default(), render.ValidFilenameTokens())
	var warnings, errors int
	for _, v := range validations {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errors++
		}
	}

	summary := fmt.Sprintf("effect %s, %g fps", nonEmptyOr(cfg.Effect.Slug, "none"), cfg.Output.FPS)

	if errors > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errors)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

// checkOutputs compares the recorded render state with the GIFs on disk.
func checkOutputs(pp paths.ProjectPaths) healthCheck {
	rs, err := state.Load(pp.StateFile)
	if err != nil {
		return healthCheck{Name: "Outputs", Status: "warning", Summary: "could not load render state"}
	}
	if len(rs.Outputs) == 0 {
		return healthCheck{Name: "Outputs", Status: "ok", Summary: "nothing rendered yet"}
	}

	var missing []string
	for path := range rs.Outputs {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) == 0 {
		return healthCheck{Name: "Outputs", Status: "ok", Summary: fmt.Sprintf("%d GIFs rendered", len(rs.Outputs))}
	}
	sort.Strings(missing)
	return healthCheck{
		Name:    "Outputs",
		Status:  "warning",
		Summary: fmt.Sprintf("%d of %d recorded GIFs missing (first: %s)", len(missing), len(rs.Outputs), missing[0]),
	}
}

func writeDoctorResult(cmd *cobra.Command, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), checks)
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("PROJECT HEALTH:")+" "+projectRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	if len(items) == 0 {
		return ""
	}
	result := items[0]
	for _, item := range items[1:] {
		result += ", " + item
	}
	return result
}

func nonEmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
