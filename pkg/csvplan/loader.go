package csvplan

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Row is one clip of a batch plan.
type Row struct {
	Index      int
	Line       int
	Name       string
	Video      string
	Transcript string
	Output     string
	Effect     string
	Intensity  *int
}

var requiredHeaders = []string{"video", "transcript"}

// headerAliases maps accepted column spellings to canonical names.
var headerAliases = map[string]string{
	"source":      "video",
	"clip":        "video",
	"frames":      "video",
	"words":       "transcript",
	"captions":    "transcript",
	"title":       "name",
	"gif":         "output",
	"out":         "output",
	"effect_slug": "effect",
}

// Load reads a plan file, choosing the YAML or delimited parser by
// extension. When validation issues are found the returned error is a
// ValidationErrors and the parsed rows are still returned so callers can
// report every problem at once.
func Load(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadDelimited(path)
	}
}

// LoadDelimited reads a CSV or TSV plan with a header row.
func LoadDelimited(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("plan file is empty")
	}

	comma, err := detectDelimiter(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	var (
		rows   []Row
		errs   ValidationErrors
		header []string
	)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse file: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if header == nil {
			header, err = buildHeader(record)
			if err != nil {
				return nil, err
			}
			continue
		}
		if isEmptyRecord(record) {
			continue
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				fields[name] = cleanValue(record[i])
			}
		}
		row, rowErrs := parseFields(fields, len(rows)+1, line)
		errs = append(errs, rowErrs...)
		rows = append(rows, row)
	}

	if header == nil {
		return nil, errors.New("missing header row")
	}
	if len(rows) == 0 {
		return nil, errors.New("no data rows found")
	}
	if len(errs) > 0 {
		return rows, errs
	}
	return rows, nil
}

func detectDelimiter(data []byte) (rune, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")

	var headerLine string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		headerLine = trimmed
		break
	}

	if strings.Contains(headerLine, "\t") {
		return '\t', nil
	}
	if strings.Contains(headerLine, ",") {
		return ',', nil
	}
	return 0, errors.New("unable to detect delimiter (expected comma or tab)")
}

func buildHeader(record []string) ([]string, error) {
	if isEmptyRecord(record) {
		return nil, errors.New("header row is empty")
	}
	header := make([]string, len(record))
	seen := make(map[string]bool, len(record))
	for i, raw := range record {
		name := normalizeHeader(raw)
		if name != "" && seen[name] {
			return nil, fmt.Errorf("duplicate header: %s", name)
		}
		seen[name] = true
		header[i] = name
	}
	for _, required := range requiredHeaders {
		if !seen[required] {
			return nil, fmt.Errorf("missing required header: %s", required)
		}
	}
	return header, nil
}

func normalizeHeader(value string) string {
	value = strings.ToLower(cleanValue(value))
	value = strings.ReplaceAll(value, " ", "_")
	if canonical, ok := headerAliases[value]; ok {
		return canonical
	}
	return value
}

func cleanValue(value string) string {
	return strings.TrimSpace(strings.TrimPrefix(value, "\ufeff"))
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// parseFields validates one row given its canonical field map.
func parseFields(fields map[string]string, index, line int) (Row, []ValidationError) {
	var errs []ValidationError
	row := Row{
		Index:      index,
		Line:       line,
		Name:       fields["name"],
		Video:      fields["video"],
		Transcript: fields["transcript"],
		Output:     fields["output"],
		Effect:     strings.ToLower(fields["effect"]),
	}

	if row.Video == "" {
		errs = append(errs, ValidationError{Line: line, Field: "video", Message: "video is required"})
	}
	if row.Transcript == "" {
		errs = append(errs, ValidationError{Line: line, Field: "transcript", Message: "transcript is required"})
	}
	if raw := fields["intensity"]; raw != "" {
		value, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Line: line, Field: "intensity", Message: "intensity must be an integer"})
		case value < 0 || value > 100:
			errs = append(errs, ValidationError{Line: line, Field: "intensity", Message: "intensity must be between 0 and 100"})
		default:
			row.Intensity = &value
		}
	}
	return row, errs
}

// Resolve returns a copy of r with relative paths joined to base, normally
// the directory holding the plan file.
func (r Row) Resolve(base string) Row {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	r.Video = join(r.Video)
	r.Transcript = join(r.Transcript)
	r.Output = join(r.Output)
	return r
}

// Label returns the row name, falling back to the video file name.
func (r Row) Label() string {
	if r.Name != "" {
		return r.Name
	}
	base := filepath.Base(r.Video)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
