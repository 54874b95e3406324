package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"autogif/internal/config"
	"autogif/internal/logx"
	"autogif/internal/paths"
)

const (
	planCSV = `# Batch plan for ` + "`autogif render --plan plan.csv`" + `.
# Paths are relative to this file. effect, intensity, name and output are optional.
name,video,transcript,effect,intensity,output
`
	envExample = `# Copy to .env to override autogif.yaml without editing it.
# AUTOGIF_EFFECT=wave
# AUTOGIF_INTENSITY=60
# AUTOGIF_FPS=12
# AUTOGIF_FONT_FILE=fonts/Inter-Bold.ttf
`
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize an autogif project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}

	return cmd
}

func resolveInitDir(projectFlag string, args []string) (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		return filepath.Join(cwd, args[0]), nil
	}

	return nextAvailableDir(cwd)
}

func nextAvailableDir(base string) (string, error) {
	for i := 1; ; i++ {
		candidate := filepath.Join(base, fmt.Sprintf("autogif-%d", i))
		exists, err := paths.DirExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(projectDir, args)
	if err != nil {
		return err
	}

	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}

	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, logx.Options{Verbose: verbose})
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info().Str("project", pp.Root).Msg("autogif init")

	created := make([]string, 0, 3)

	if err := ensureConfig(pp, &created, &logger); err != nil {
		return err
	}
	if err := ensureFile(filepath.Join(pp.Root, "plan.csv"), planCSV, &created, &logger); err != nil {
		return err
	}
	if err := ensureFile(filepath.Join(pp.Root, ".env.example"), envExample, &created, &logger); err != nil {
		return err
	}

	if len(created) == 0 {
		cmd.Printf("Project already initialized at %s\n", pp.Root)
		return nil
	}

	cmd.Printf("Initialized project at %s\n", pp.Root)
	for _, entry := range created {
		cmd.Printf("  created %s\n", entry)
	}

	return nil
}

// ensureFile writes contents to path unless something is already there.
func ensureFile(path, contents string, created *[]string, logger Logger) error {
	name := filepath.Base(path)
	exists, err := paths.FileExists(path)
	if err != nil {
		return fmt.Errorf("check %s: %w", name, err)
	}
	if exists {
		logger.Printf("%s exists: %s", name, path)
		return nil
	}

	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	logger.Printf("created %s: %s", name, path)
	*created = append(*created, name)
	return nil
}

func ensureConfig(pp paths.ProjectPaths, created *[]string, logger Logger) error {
	cfg := config.Default()
	cfg.ApplyDefaults()
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	return ensureFile(pp.ConfigFile, string(data), created, logger)
}

// Logger keeps the subset of zerolog.Logger used locally, enabling easy testing.
type Logger interface {
	Printf(format string, v ...any)
}
