package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

type Source string

const (
	SourceUnknown Source = ""
	SourceConfig  Source = "config"
	SourceSystem  Source = "system"
)

// Status captures the resolved state of an external tool.
type Status struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Source    Source   `json:"source"`
	Path      string   `json:"path,omitempty"`
	Satisfied bool     `json:"satisfied"`
	Error     string   `json:"error,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// Overrides maps tool names to explicitly configured binary paths.
type Overrides map[string]string

// Detect reports every known tool. A configured override is used as given;
// otherwise the tool is looked up on PATH.
func Detect(ctx context.Context, overrides Overrides) []Status {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	statuses := make([]Status, 0, len(toolDefinitions))
	for _, name := range KnownTools() {
		def, _ := Definition(name)
		statuses = append(statuses, detectOne(ctx, def, strings.TrimSpace(overrides[name])))
	}
	return statuses
}

func detectOne(ctx context.Context, def ToolDefinition, override string) Status {
	status := Status{Tool: def.Name, Minimum: def.MinimumVersion}

	path, source, err := locate(def, override)
	if err != nil {
		status.Error = err.Error()
		status.Notes = installHints(def.Name)
		return status
	}
	status.Path = path
	status.Source = source

	version, err := readVersion(ctx, def, path)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Version = version
	status.Satisfied = meetsMinimum(version, def.MinimumVersion)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, def.MinimumVersion)
		status.Notes = installHints(def.Name)
	}
	return status
}

func locate(def ToolDefinition, override string) (string, Source, error) {
	if override != "" {
		if strings.ContainsRune(override, os.PathSeparator) {
			info, err := os.Stat(override)
			if err != nil {
				return "", SourceConfig, fmt.Errorf("configured %s: %w", def.Name, err)
			}
			if info.IsDir() {
				return "", SourceConfig, fmt.Errorf("configured %s is a directory: %s", def.Name, override)
			}
			return override, SourceConfig, nil
		}
		path, err := exec.LookPath(override)
		if err != nil {
			return "", SourceConfig, fmt.Errorf("configured %s %q not found in PATH", def.Name, override)
		}
		return path, SourceConfig, nil
	}
	path, err := exec.LookPath(def.Executable())
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", SourceUnknown, fmt.Errorf("%s not found in PATH", def.Executable())
		}
		return "", SourceUnknown, err
	}
	return path, SourceSystem, nil
}

// Satisfied reports whether every status meets its minimum.
func Satisfied(statuses []Status) bool {
	for _, st := range statuses {
		if !st.Satisfied {
			return false
		}
	}
	return len(statuses) > 0
}
