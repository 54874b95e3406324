package csvplan

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a YAML plan: either a top-level list of clip maps or a map
// with a "clips" list. Keys go through the same aliasing as CSV headers.
func LoadYAML(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("plan file is empty")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("no data rows found")
	}

	list := doc.Content[0]
	if list.Kind == yaml.MappingNode {
		list = mappingValue(list, "clips")
		if list == nil {
			return nil, errors.New(`YAML plan must be a list or contain a "clips" list`)
		}
	}
	if list.Kind != yaml.SequenceNode {
		return nil, errors.New("YAML plan must be a list of clips")
	}
	if len(list.Content) == 0 {
		return nil, errors.New("no data rows found")
	}

	var (
		rows []Row
		errs ValidationErrors
	)
	for i, item := range list.Content {
		var raw map[string]any
		if err := item.Decode(&raw); err != nil {
			errs = append(errs, ValidationError{Line: item.Line, Message: fmt.Sprintf("entry %d is not a map", i+1)})
			rows = append(rows, Row{Index: i + 1, Line: item.Line})
			continue
		}
		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			if key := normalizeHeader(k); key != "" {
				fields[key] = cleanValue(yamlScalarToString(v))
			}
		}
		row, rowErrs := parseFields(fields, i+1, item.Line)
		errs = append(errs, rowErrs...)
		rows = append(rows, row)
	}

	if len(errs) > 0 {
		return rows, errs
	}
	return rows, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// yamlScalarToString converts a YAML scalar value to its string representation.
func yamlScalarToString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
