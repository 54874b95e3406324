package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type rawWord struct {
	Word      string   `yaml:"word"`
	Text      string   `yaml:"text"`
	Start     *float64 `yaml:"start"`
	StartTime *float64 `yaml:"start_time"`
	End       *float64 `yaml:"end"`
	EndTime   *float64 `yaml:"end_time"`
}

type rawSegment struct {
	Words []rawWord `yaml:"words"`
}

type rawDocument struct {
	Words    []rawWord    `yaml:"words"`
	Segments []rawSegment `yaml:"segments"`
}

// Load reads a transcript file. JSON and YAML are both accepted since YAML is
// a superset of JSON. The document may be a bare list of words, an object with
// a "words" list, or an object with "segments" each carrying "words".
//
// When validation issues are found the returned error is a ValidationErrors
// value and the parsed words are still returned.
func Load(path string) ([]Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a transcript document from r. See Load for accepted shapes.
func Parse(r io.Reader) ([]Word, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var raws []rawWord
	switch doc := root.Content[0]; doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&raws); err != nil {
			return nil, fmt.Errorf("decode transcript words: %w", err)
		}
	case yaml.MappingNode:
		var parsed rawDocument
		if err := doc.Decode(&parsed); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		raws = parsed.Words
		for _, seg := range parsed.Segments {
			raws = append(raws, seg.Words...)
		}
	default:
		return nil, errors.New("transcript must be a list of words or an object with words")
	}

	words := make([]Word, 0, len(raws))
	var errs ValidationErrors
	for i, raw := range raws {
		word, err := raw.normalize(i)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		words = append(words, word)
	}
	if len(errs) > 0 {
		return words, errs
	}
	if err := Validate(words); err != nil {
		return words, err
	}
	return words, nil
}

func (r rawWord) normalize(index int) (Word, *ValidationError) {
	text := r.Word
	if text == "" {
		text = r.Text
	}
	start := firstSet(r.Start, r.StartTime)
	if start == nil {
		return Word{}, &ValidationError{Index: index, Field: "start", Message: "is missing"}
	}
	end := firstSet(r.End, r.EndTime)
	if end == nil {
		return Word{}, &ValidationError{Index: index, Field: "end", Message: "is missing"}
	}
	return Word{Text: NormalizeText(text), Start: *start, End: *end}, nil
}

func firstSet(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
