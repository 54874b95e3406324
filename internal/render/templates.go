package render

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// OutputBaseName expands a $TOKEN filename template for req. Unknown tokens
// expand to nothing and $$ produces a literal dollar sign.
func OutputBaseName(template string, req Request) string {
	template = strings.TrimSpace(template)
	values := outputTemplateValues(req)
	if template == "" {
		return sanitizeSegment(fallbackOutputBase(req))
	}
	rendered := applyOutputTemplate(template, values)
	base := sanitizeSegment(rendered)
	if base == "" {
		return sanitizeSegment(fallbackOutputBase(req))
	}
	return base
}

// OutputPath joins the expanded template onto dir with a .gif extension.
func OutputPath(dir, template string, req Request) string {
	return filepath.Join(dir, OutputBaseName(template, req)+".gif")
}

// ValidFilenameTokens lists every token OutputBaseName understands.
func ValidFilenameTokens() []string {
	values := outputTemplateValues(Request{Source: "x", TranscriptPath: "x", Name: "x"})
	tokens := make([]string, 0, len(values))
	for k := range values {
		tokens = append(tokens, k)
	}
	sort.Strings(tokens)
	return tokens
}

func fallbackOutputBase(req Request) string {
	name := safeFileSlug(basename(req.Source))
	if name == "" {
		name = fmt.Sprintf("clip_%03d", req.Index)
	}
	return fmt.Sprintf("%03d_%s", req.Index, name)
}

func basename(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	path = filepath.Clean(path)
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func outputTemplateValues(req Request) map[string]string {
	set := req.Settings
	effect := effectToken(set)
	if effect == "" {
		effect = "none"
	}
	intensity := ""
	if set.Intensity != nil {
		intensity = strconv.Itoa(*set.Intensity)
	}
	fps := ""
	if set.FPS > 0 {
		fps = strconv.FormatFloat(set.FPS, 'f', -1, 64)
	}
	height := ""
	if set.Height > 0 {
		height = strconv.Itoa(set.Height)
	}

	source := basename(req.Source)
	transcriptBase := basename(req.TranscriptPath)

	return map[string]string{
		"INDEX":      fmt.Sprintf("%03d", req.Index),
		"INDEX_PAD2": fmt.Sprintf("%02d", req.Index),
		"INDEX_PAD3": fmt.Sprintf("%03d", req.Index),
		"INDEX_RAW":  strconv.Itoa(req.Index),

		"NAME":      sanitizeSegment(req.Name),
		"SAFE_NAME": safeFileSlug(req.Name),

		"SOURCE_BASENAME":          sanitizeSegment(source),
		"SAFE_SOURCE_BASENAME":     safeFileSlug(source),
		"TRANSCRIPT_BASENAME":      sanitizeSegment(transcriptBase),
		"SAFE_TRANSCRIPT_BASENAME": safeFileSlug(transcriptBase),

		"EFFECT":    sanitizeSegment(effect),
		"INTENSITY": intensity,
		"FPS":       sanitizeSegment(fps),
		"HEIGHT":    height,
	}
}

func applyOutputTemplate(template string, values map[string]string) string {
	var builder strings.Builder
	for i := 0; i < len(template); {
		ch := template[i]
		if ch != '$' {
			builder.WriteByte(ch)
			i++
			continue
		}

		if i+1 < len(template) && template[i+1] == '$' {
			builder.WriteByte('$')
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

		if j == i+1 {
			builder.WriteByte('$')
			i++
			continue
		}

		token := template[i+1 : j]
		if val, ok := values[token]; ok {
			builder.WriteString(val)
		}
		i = j
	}
	return builder.String()
}

func sanitizeSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var builder strings.Builder
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(r)
			lastUnderscore = false
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastUnderscore = false
		case r == '-' || r == '.':
			builder.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				builder.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	result := builder.String()
	result = strings.Trim(result, "_.-")
	if len(result) > 150 {
		result = result[:150]
	}
	return result
}
