package corpus

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// frontmatter holds the metadata keys read from YAML (---) or TOML (+++)
// headers.
type frontmatter struct {
	Title    string   `yaml:"title" toml:"title"`
	Category string   `yaml:"category" toml:"category"`
	Version  string   `yaml:"version" toml:"version"`
	Tags     []string `yaml:"tags" toml:"tags"`
	Date     any      `yaml:"date" toml:"date"`
	Updated  any      `yaml:"updated" toml:"updated"`
}

// splitFrontmatter separates a leading metadata block from the body.
// A file without a header returns a zero frontmatter and the whole input.
func splitFrontmatter(data []byte) (frontmatter, []byte, error) {
	var fm frontmatter

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var delim string
	switch {
	case hasDelimLine(data, "---"):
		delim = "---"
	case hasDelimLine(data, "+++"):
		delim = "+++"
	default:
		return fm, data, nil
	}

	rest := data[bytes.IndexByte(data, '\n')+1:]
	end := findDelimLine(rest, delim)
	if end < 0 {
		return fm, nil, fmt.Errorf("unterminated %s frontmatter", delim)
	}
	header := rest[:end]
	body := rest[end:]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}

	var err error
	if delim == "---" {
		err = yaml.Unmarshal(header, &fm)
	} else {
		err = toml.Unmarshal(header, &fm)
	}
	if err != nil {
		return fm, nil, fmt.Errorf("invalid frontmatter: %w", err)
	}
	return fm, body, nil
}

func hasDelimLine(data []byte, delim string) bool {
	line := data
	if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
		line = data[:nl]
	}
	return strings.TrimSpace(string(line)) == delim
}

// findDelimLine returns the offset of the first line equal to delim, or -1.
func findDelimLine(data []byte, delim string) int {
	offset := 0
	for offset <= len(data) {
		line := data[offset:]
		nl := bytes.IndexByte(line, '\n')
		if nl >= 0 {
			line = line[:nl]
		}
		if strings.TrimSpace(string(line)) == delim {
			return offset
		}
		if nl < 0 {
			break
		}
		offset += nl + 1
	}
	return -1
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type asTimer interface {
	AsTime(zone *time.Location) time.Time
}

// updatedAt picks the most specific timestamp in the header.
func (fm frontmatter) updatedAt() (time.Time, bool) {
	for _, v := range []any{fm.Updated, fm.Date} {
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), true
		case asTimer:
			return t.AsTime(time.UTC), true
		case string:
			for _, layout := range dateLayouts {
				if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
					return parsed.UTC(), true
				}
			}
		}
	}
	return time.Time{}, false
}
