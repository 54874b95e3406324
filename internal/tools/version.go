package tools

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

func readVersion(ctx context.Context, def ToolDefinition, path string) (string, error) {
	cmd := exec.CommandContext(ctx, path, def.VersionSwitch)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s version: %w", def.Name, err)
	}
	return normalizeFFmpegVersion(firstLine(strings.TrimSpace(string(output)))), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

var ffmpegVersionRegex = regexp.MustCompile(`([0-9]+)(?:\.([0-9]+))?(?:\.([0-9]+))?`)

// normalizeFFmpegVersion pulls the dotted version out of a banner such as
// "ffmpeg version n6.1.1-static" or "ffprobe version 4.4.2-0ubuntu0.22.04.1".
func normalizeFFmpegVersion(line string) string {
	if fields := strings.Fields(line); len(fields) >= 3 && strings.EqualFold(fields[1], "version") {
		line = fields[2]
	}
	match := ffmpegVersionRegex.FindString(line)
	if match == "" {
		return line
	}
	return match
}

func meetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	if version == "" {
		return false
	}

	vParts := numericParts(version)
	mParts := numericParts(minimum)
	for len(vParts) < len(mParts) {
		vParts = append(vParts, 0)
	}
	for len(mParts) < len(vParts) {
		mParts = append(mParts, 0)
	}
	for i := 0; i < len(vParts) && i < len(mParts); i++ {
		if vParts[i] > mParts[i] {
			return true
		}
		if vParts[i] < mParts[i] {
			return false
		}
	}
	return true
}

func numericParts(version string) []int {
	var parts []int
	current := strings.Builder{}
	for _, r := range version {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			val, _ := strconv.Atoi(current.String())
			parts = append(parts, val)
			current.Reset()
		}
	}
	if current.Len() > 0 {
		val, _ := strconv.Atoi(current.String())
		parts = append(parts, val)
	}
	return parts
}
