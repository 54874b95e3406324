package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autogif/internal/config"
)

// ProjectPaths captures canonical locations for an autogif project.
type ProjectPaths struct {
	Root       string
	ConfigFile string
	EnvFile    string
	MetaDir    string
	OutputDir  string
	LogsDir    string
	StateFile  string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".autogif")
	return ProjectPaths{
		Root:       root,
		ConfigFile: filepath.Join(root, "autogif.yaml"),
		EnvFile:    filepath.Join(root, ".env"),
		MetaDir:    metaDir,
		OutputDir:  filepath.Join(root, "out"),
		LogsDir:    filepath.Join(metaDir, "logs"),
		StateFile:  filepath.Join(metaDir, "state.json"),
	}
}

// ApplyConfig points the output directory at the configured location.
func ApplyConfig(pp ProjectPaths, cfg config.Config) ProjectPaths {
	if dir := strings.TrimSpace(cfg.Output.Dir); dir != "" {
		pp.OutputDir = ResolveProjectPath(pp.Root, dir)
	}
	return pp
}

// ResolveProjectPath returns value unchanged when absolute, otherwise joined
// onto root.
func ResolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureRoot makes sure the project root exists on disk.
func (p ProjectPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	return nil
}

// EnsureMetaDirs creates the output and logs directories alongside the hidden
// .autogif metadata directory.
func (p ProjectPaths) EnsureMetaDirs() error {
	dirs := []string{p.MetaDir, p.OutputDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
