package cli

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"autogif/internal/config"
	"autogif/internal/logx"
	"autogif/internal/paths"
)

// loadProject resolves the project directory and its effective
// configuration: autogif.yaml, then .env, then AUTOGIF_* variables.
func loadProject() (paths.ProjectPaths, config.Config, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return paths.ProjectPaths{}, config.Config{}, err
	}
	cfg, err := config.LoadProject(pp.ConfigFile, pp.Root)
	if err != nil {
		return paths.ProjectPaths{}, config.Config{}, err
	}
	return paths.ApplyConfig(pp, cfg), cfg, nil
}

func ensureProjectDirs(pp paths.ProjectPaths) error {
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}
	return pp.EnsureMetaDirs()
}

// openLogger returns the project file logger. Console mirrors log lines to
// a terminal and is left nil while a progress display owns the screen.
func openLogger(pp paths.ProjectPaths, console io.Writer) (zerolog.Logger, io.Closer, error) {
	logger, closer, err := logx.New(pp, logx.Options{Verbose: verbose, Console: console})
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return logger, closer, nil
}
