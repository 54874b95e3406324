package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"autogif/internal/effects"
	"autogif/internal/layout"
	"autogif/internal/timing"
)

// Config captures the caption, styling and output settings for a project.
type Config struct {
	Version  int            `yaml:"version"`
	Output   OutputConfig   `yaml:"output"`
	Captions CaptionsConfig `yaml:"captions"`
	Style    StyleConfig    `yaml:"style"`
	Effect   EffectConfig   `yaml:"effect"`
	Render   RenderConfig   `yaml:"render"`
	Tools    ToolsConfig    `yaml:"tools"`
}

// OutputConfig controls the decoded frame rate, size and GIF encoding.
type OutputConfig struct {
	Dir              string  `yaml:"dir"`
	FPS              float64 `yaml:"fps"`
	Height           int     `yaml:"height"`
	Loop             int     `yaml:"loop"`
	Quantizer        string  `yaml:"quantizer"`
	Colors           int     `yaml:"colors"`
	Dither           bool    `yaml:"dither"`
	FilenameTemplate string  `yaml:"filename_template"`
}

// CaptionsConfig controls how words are grouped into captions.
type CaptionsConfig struct {
	MaxWords            int     `yaml:"max_words"`
	MaxDurationSec      float64 `yaml:"max_duration_s"`
	SilenceThresholdSec float64 `yaml:"silence_threshold_s"`
	BreakOnSentence     bool    `yaml:"break_on_sentence"`
	MinSentenceSec      float64 `yaml:"min_sentence_s"`
}

// StyleConfig describes the caption font and colours.
type StyleConfig struct {
	FontFile      string  `yaml:"font_file"`
	FontSize      float64 `yaml:"font_size"`
	MinFontSize   float64 `yaml:"min_font_size"`
	Color         string  `yaml:"color"`
	OutlineColor  string  `yaml:"outline_color"`
	OutlineWidth  *int    `yaml:"outline_width,omitempty"`
	Position      string  `yaml:"position"`
	MaxLines      int     `yaml:"max_lines"`
	MaxWidthRatio float64 `yaml:"max_width_ratio"`
}

// EffectConfig selects the text effect. Slug is a single slug or a chain
// such as "typewriter+glow:40". A nil Intensity uses each effect's default.
type EffectConfig struct {
	Slug      string `yaml:"slug"`
	Intensity *int   `yaml:"intensity,omitempty"`
	// WordMode is auto, caption, words or active.
	WordMode string `yaml:"word_mode,omitempty"`
}

// RenderConfig controls batch execution.
type RenderConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// ToolsConfig overrides the ffmpeg binaries found on PATH.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Output: OutputConfig{
			Dir:              "out",
			FPS:              10,
			Height:           480,
			Loop:             0,
			Quantizer:        "median-cut",
			Colors:           256,
			FilenameTemplate: "$SAFE_SOURCE_BASENAME-$EFFECT",
		},
		Captions: CaptionsConfig{
			MaxWords:            8,
			MaxDurationSec:      5,
			SilenceThresholdSec: 1,
			MinSentenceSec:      0.5,
		},
		Style: StyleConfig{
			FontSize:      36,
			MinFontSize:   16,
			Color:         "white",
			OutlineColor:  "black",
			OutlineWidth:  intPtr(2),
			Position:      string(layout.PositionBottom),
			MaxLines:      3,
			MaxWidthRatio: 0.9,
		},
		Effect: EffectConfig{
			Slug: "none",
		},
		Render: RenderConfig{
			Concurrency: 2,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaults.Output.Dir
	}
	if c.Output.FPS == 0 {
		c.Output.FPS = defaults.Output.FPS
	}
	if c.Output.Height == 0 {
		c.Output.Height = defaults.Output.Height
	}
	if c.Output.Quantizer == "" {
		c.Output.Quantizer = defaults.Output.Quantizer
	}
	if c.Output.Colors == 0 {
		c.Output.Colors = defaults.Output.Colors
	}
	if c.Output.FilenameTemplate == "" {
		c.Output.FilenameTemplate = defaults.Output.FilenameTemplate
	}
	if c.Captions.MaxWords == 0 {
		c.Captions.MaxWords = defaults.Captions.MaxWords
	}
	if c.Captions.MaxDurationSec == 0 {
		c.Captions.MaxDurationSec = defaults.Captions.MaxDurationSec
	}
	if c.Captions.SilenceThresholdSec == 0 {
		c.Captions.SilenceThresholdSec = defaults.Captions.SilenceThresholdSec
	}
	if c.Captions.MinSentenceSec == 0 {
		c.Captions.MinSentenceSec = defaults.Captions.MinSentenceSec
	}
	if c.Style.FontSize == 0 {
		c.Style.FontSize = defaults.Style.FontSize
	}
	if c.Style.MinFontSize == 0 {
		c.Style.MinFontSize = math.Min(defaults.Style.MinFontSize, c.Style.FontSize)
	}
	if c.Style.Color == "" {
		c.Style.Color = defaults.Style.Color
	}
	if c.Style.OutlineColor == "" {
		c.Style.OutlineColor = defaults.Style.OutlineColor
	}
	if c.Style.OutlineWidth == nil {
		c.Style.OutlineWidth = intPtr(*defaults.Style.OutlineWidth)
	}
	if c.Style.Position == "" {
		c.Style.Position = defaults.Style.Position
	}
	if c.Style.MaxLines == 0 {
		c.Style.MaxLines = defaults.Style.MaxLines
	}
	if c.Style.MaxWidthRatio == 0 {
		c.Style.MaxWidthRatio = defaults.Style.MaxWidthRatio
	}
	if strings.TrimSpace(c.Effect.Slug) == "" {
		c.Effect.Slug = defaults.Effect.Slug
	}
	if c.Render.Concurrency == 0 {
		c.Render.Concurrency = defaults.Render.Concurrency
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// OutlineWidthValue returns the effective outline width.
func (s StyleConfig) OutlineWidthValue() int {
	if s.OutlineWidth == nil {
		return 2
	}
	return *s.OutlineWidth
}

// CaptionPolicy converts the captions section into a grouping policy.
func (c Config) CaptionPolicy() timing.Policy {
	return timing.Policy{
		MaxWords:            c.Captions.MaxWords,
		MaxDuration:         c.Captions.MaxDurationSec,
		SilenceThreshold:    c.Captions.SilenceThresholdSec,
		BreakOnSentence:     c.Captions.BreakOnSentence,
		MinSentenceDuration: c.Captions.MinSentenceSec,
	}
}

// LayoutPolicy converts the style section into a layout policy.
func (c Config) LayoutPolicy() (layout.Policy, error) {
	position, err := layout.ParsePosition(c.Style.Position)
	if err != nil {
		return layout.Policy{}, err
	}
	policy := layout.DefaultPolicy()
	policy.Position = position
	policy.MaxLines = c.Style.MaxLines
	policy.MaxWidthRatio = c.Style.MaxWidthRatio
	return policy, nil
}

// FontSpec resolves the font file against the project root. An empty font
// file selects the embedded face.
func (c Config) FontSpec(projectRoot string) layout.FontSpec {
	path := strings.TrimSpace(c.Style.FontFile)
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(projectRoot, path)
	}
	return layout.FontSpec{
		Path:    path,
		Size:    c.Style.FontSize,
		MinSize: c.Style.MinFontSize,
	}
}

// TextStyle parses the configured colours.
func (c Config) TextStyle() (effects.Style, error) {
	fill, err := ParseColor(c.Style.Color)
	if err != nil {
		return effects.Style{}, fmt.Errorf("style.color: %w", err)
	}
	outline, err := ParseColor(c.Style.OutlineColor)
	if err != nil {
		return effects.Style{}, fmt.Errorf("style.outline_color: %w", err)
	}
	return effects.Style{
		Fill:         fill,
		Outline:      outline,
		OutlineWidth: c.Style.OutlineWidthValue(),
	}, nil
}

// EffectIntensity returns the configured intensity or the descriptor
// default.
func (c Config) EffectIntensity(desc effects.Descriptor) int {
	if c.Effect.Intensity == nil {
		return desc.DefaultIntensity
	}
	return *c.Effect.Intensity
}

func intPtr(v int) *int {
	return &v
}
