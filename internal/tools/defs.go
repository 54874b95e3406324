package tools

import (
	"runtime"
	"sort"
)

var toolDefinitions = map[string]ToolDefinition{
	"ffmpeg": {
		Name:           "ffmpeg",
		MinimumVersion: "4.0",
		VersionSwitch:  "-version",
	},
	"ffprobe": {
		Name:           "ffprobe",
		MinimumVersion: "4.0",
		VersionSwitch:  "-version",
	},
}

// ToolDefinition contains the metadata needed to check a tool.
type ToolDefinition struct {
	Name           string
	MinimumVersion string
	VersionSwitch  string
}

// Executable returns the platform file name of the tool.
func (d ToolDefinition) Executable() string {
	return executableName(d.Name)
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// KnownTools returns the list of checked tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}
