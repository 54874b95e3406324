package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"autogif/internal/effects"
	"autogif/internal/encode"
	"autogif/internal/layout"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

// ValidateStrict runs all strict validations against the config and returns
// structured results. knownFilenameTokens is the set of $TOKEN names the
// output filename template may use (pass render.ValidFilenameTokens()).
func (c Config) ValidateStrict(projectRoot string, registry *effects.Registry, knownFilenameTokens []string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateFont(projectRoot)...)
	results = append(results, c.validateColors()...)
	results = append(results, c.validateRanges()...)
	results = append(results, c.validateEffect(registry)...)
	results = append(results, c.validateFilenameTemplate(knownFilenameTokens)...)
	return results
}

func (c Config) validateFont(projectRoot string) []ValidationResult {
	spec := c.FontSpec(projectRoot)
	if spec.Path == "" {
		return nil
	}
	info, err := os.Stat(spec.Path)
	if err != nil {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("font file %q not found", c.Style.FontFile),
		}}
	}
	if info.IsDir() {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("font file %q is a directory", c.Style.FontFile),
		}}
	}
	switch strings.ToLower(filepath.Ext(spec.Path)) {
	case ".ttf", ".otf", ".ttc":
		return nil
	default:
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("font file %q does not look like a TrueType or OpenType font", c.Style.FontFile),
		}}
	}
}

func (c Config) validateColors() []ValidationResult {
	var results []ValidationResult
	for _, field := range []struct{ name, value string }{
		{"style.color", c.Style.Color},
		{"style.outline_color", c.Style.OutlineColor},
	} {
		if _, err := ParseColor(field.value); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("%s: %v", field.name, err),
			})
		}
	}
	return results
}

func (c Config) validateRanges() []ValidationResult {
	var results []ValidationResult
	add := func(level, format string, args ...any) {
		results = append(results, ValidationResult{Level: level, Message: fmt.Sprintf(format, args...)})
	}

	fps := c.Output.FPS
	switch {
	case fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0):
		add("error", "output.fps must be > 0 (got %v)", fps)
	case fps > 50:
		add("warning", "output.fps %v is above what most GIF viewers play back (50)", fps)
	}
	if c.Output.Height < 0 {
		add("error", "output.height must be >= 0 (got %d)", c.Output.Height)
	}
	if c.Output.Colors < 2 || c.Output.Colors > 256 {
		add("error", "output.colors must be between 2 and 256 (got %d)", c.Output.Colors)
	}
	if _, err := encode.ParseQuantizer(c.Output.Quantizer, c.Output.Colors); err != nil {
		add("error", "output.quantizer: %v", err)
	}
	if c.Output.Loop < -1 || c.Output.Loop > math.MaxUint16 {
		add("error", "output.loop must be -1 (play once), 0 (forever) or a repeat count (got %d)", c.Output.Loop)
	}

	if c.Captions.MaxWords < 1 {
		add("error", "captions.max_words must be >= 1 (got %d)", c.Captions.MaxWords)
	}
	if c.Captions.MaxDurationSec <= 0 {
		add("error", "captions.max_duration_s must be > 0 (got %v)", c.Captions.MaxDurationSec)
	}
	if c.Captions.SilenceThresholdSec <= 0 {
		add("error", "captions.silence_threshold_s must be > 0 (got %v)", c.Captions.SilenceThresholdSec)
	}

	if c.Style.FontSize <= 0 {
		add("error", "style.font_size must be > 0 (got %v)", c.Style.FontSize)
	}
	if c.Style.MinFontSize > c.Style.FontSize {
		add("warning", "style.min_font_size %v is larger than font_size %v; captions will not shrink", c.Style.MinFontSize, c.Style.FontSize)
	}
	if w := c.Style.OutlineWidthValue(); w < 0 || w > 10 {
		add("error", "style.outline_width must be between 0 and 10 (got %d)", w)
	}
	if _, err := layout.ParsePosition(c.Style.Position); err != nil {
		add("error", "style.position: %v", err)
	}
	if c.Style.MaxLines < 1 {
		add("error", "style.max_lines must be >= 1 (got %d)", c.Style.MaxLines)
	}
	if c.Style.MaxWidthRatio <= 0 || c.Style.MaxWidthRatio > 1 {
		add("error", "style.max_width_ratio must be in (0, 1] (got %v)", c.Style.MaxWidthRatio)
	}
	if c.Render.Concurrency < 1 {
		add("error", "render.concurrency must be >= 1 (got %d)", c.Render.Concurrency)
	}
	return results
}

func (c Config) validateEffect(registry *effects.Registry) []ValidationResult {
	if registry == nil {
		registry = effects.Default()
	}
	fail := func(format string, args ...any) []ValidationResult {
		return []ValidationResult{{Level: "error", Message: fmt.Sprintf(format, args...)}}
	}
	chain, err := effects.ParseChain(c.Effect.Slug)
	if err != nil {
		return fail("effect.slug: %v", err)
	}
	steps, err := registry.Resolve(chain, c.Effect.Intensity)
	if err != nil {
		var unknown *effects.UnknownEffectError
		var ierr *effects.IntensityError
		switch {
		case errors.As(err, &unknown):
			return fail("%v", err)
		case errors.As(err, &ierr):
			return fail("effect.intensity must be between 0 and 100 (got %d for %s)", ierr.Value, ierr.Slug)
		default:
			return fail("effect.slug: %v", err)
		}
	}
	if _, err := effects.ResolveWordMode(c.Effect.WordMode, steps[0].Descriptor); err != nil {
		return fail("effect.word_mode: %v", err)
	}
	return nil
}

func (c Config) validateFilenameTemplate(knownTokens []string) []ValidationResult {
	tmpl := strings.TrimSpace(c.Output.FilenameTemplate)
	if tmpl == "" || len(knownTokens) == 0 {
		return nil
	}

	known := make(map[string]bool, len(knownTokens))
	for _, t := range knownTokens {
		known[t] = true
	}

	tokens := extractTemplateTokens(tmpl)
	var results []ValidationResult
	for _, tok := range tokens {
		if !known[tok] {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("filename template contains unknown token $%s (known tokens: %s)", tok, strings.Join(knownTokens, ", ")),
			})
		}
	}
	return results
}

// extractTemplateTokens parses $TOKEN patterns from a template string,
// using the same token-boundary rules as the render template engine.
func extractTemplateTokens(template string) []string {
	var tokens []string
	for i := 0; i < len(template); {
		ch := template[i]
		if ch != '$' {
			i++
			continue
		}
		if i+1 < len(template) && template[i+1] == '$' {
			i += 2
			continue
		}
		j := i + 1
		for j < len(template) {
			c := template[j]
			switch {
			case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
				j++
				continue
			case c == '_':
				if j+1 < len(template) {
					next := template[j+1]
					if (next >= 'A' && next <= 'Z') || (next >= 'a' && next <= 'z') || (next >= '0' && next <= '9') {
						j++
						continue
					}
				}
				fallthrough
			default:
				break
			}
			break
		}
		if j > i+1 {
			tokens = append(tokens, template[i+1:j])
		}
		i = j
	}
	return tokens
}
