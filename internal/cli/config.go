package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"autogif/internal/config"
	"autogif/internal/effects"
	"autogif/internal/paths"
	"autogif/internal/tui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit project configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigEditCmd())
	cmd.AddCommand(newConfigSetupCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration in YAML, including .env and AUTOGIF_* overrides",
		RunE:  runConfigShow,
	}
}

func newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the project configuration in $EDITOR",
		RunE:  runConfigEdit,
	}
}

func newConfigSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Pick the effect and output style interactively",
		RunE:  runConfigSetup,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadProject()
	if err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}

	if err := pp.EnsureRoot(); err != nil {
		return err
	}

	if err := ensureConfigFileExists(pp); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}

	parts := splitEditorCommand(editor)
	if len(parts) == 0 {
		return fmt.Errorf("invalid EDITOR value: %q", editor)
	}

	parts = append(parts, pp.ConfigFile)

	execCmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	execCmd.Stdout = cmd.OutOrStdout()
	execCmd.Stderr = cmd.ErrOrStderr()
	execCmd.Stdin = cmd.InOrStdin()
	execCmd.Dir = pp.Root

	if err := execCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}
	return nil
}

func runConfigSetup(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}

	// The file alone, so environment overrides are not written back.
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}

	registry := effects.Default()
	choice, err := tui.RunStyleSetup(cmd.OutOrStdout(), registry.List(), styleChoiceFromConfig(cfg, registry))
	if err != nil {
		return err
	}
	if choice.Cancelled {
		fmt.Fprintln(cmd.OutOrStdout(), "Setup cancelled; configuration unchanged.")
		return nil
	}

	applyStyleChoice(&cfg, choice, registry)
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(pp.ConfigFile, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: effect=%s intensity=%d fps=%g height=%d\n",
		pp.ConfigFile, choice.Effect, choice.Intensity, choice.FPS, choice.Height)
	return nil
}

func styleChoiceFromConfig(cfg config.Config, registry *effects.Registry) tui.StyleChoice {
	intensity := 0
	if e, err := registry.Lookup(cfg.Effect.Slug); err == nil {
		intensity = cfg.EffectIntensity(e.Descriptor())
	}
	return tui.StyleChoice{
		Effect:    cfg.Effect.Slug,
		Intensity: intensity,
		FPS:       cfg.Output.FPS,
		Height:    cfg.Output.Height,
		Position:  cfg.Style.Position,
		Quantizer: cfg.Output.Quantizer,
		Dither:    cfg.Output.Dither,
	}
}

// applyStyleChoice copies the carousel result into cfg. An intensity equal
// to the effect default is stored as unset so later default changes apply.
func applyStyleChoice(cfg *config.Config, choice tui.StyleChoice, registry *effects.Registry) {
	cfg.Effect.Slug = choice.Effect
	cfg.Effect.Intensity = nil
	if e, err := registry.Lookup(choice.Effect); err == nil && e.Descriptor().DefaultIntensity != choice.Intensity {
		v := choice.Intensity
		cfg.Effect.Intensity = &v
	}
	cfg.Output.FPS = choice.FPS
	cfg.Output.Height = choice.Height
	cfg.Output.Quantizer = choice.Quantizer
	cfg.Output.Dither = choice.Dither
	cfg.Style.Position = choice.Position
}

func ensureConfigFileExists(pp paths.ProjectPaths) error {
	if _, err := os.Stat(pp.ConfigFile); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pp.ConfigFile), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	cfg := config.Default()
	cfg.ApplyDefaults()
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(pp.ConfigFile, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

func splitEditorCommand(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	// Basic splitting on whitespace; handles simple EDITOR values like "nano" or "code -w".
	fields := strings.Fields(value)
	return append([]string{}, fields...)
}
