// Package catalog loads the generator's input files: surveys, curated
// materials, beginner materials and the course description.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// LoadCourseDescription reads the core module description verbatim.
func LoadCourseDescription(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read course description: %w", err)
	}
	return string(data), nil
}

// LoadMaterials reads the pipe-separated curated materials catalog.
func LoadMaterials(path string) ([]domain.Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open materials catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseMaterials(f)
}

// ParseMaterials reads a catalog with a header row naming "description" and
// "url" columns. A leading index column, when present, must count 1..N.
func ParseMaterials(r io.Reader) ([]domain.Material, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	descCol, urlCol := -1, -1
	for i, name := range head {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "description":
			descCol = i
		case "url":
			urlCol = i
		}
	}
	if descCol < 0 || urlCol < 0 {
		return nil, fmt.Errorf("catalog header must name description and url columns, got %v", head)
	}
	indexed := descCol > 0 && urlCol > 0

	var out []domain.Material
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		if len(rec) <= max(descCol, urlCol) {
			if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
				continue
			}
			return nil, fmt.Errorf("catalog line %d: expected %d columns, got %d", line, len(head), len(rec))
		}
		pos := len(out) + 1
		if indexed {
			idx, err := strconv.Atoi(strings.TrimSpace(rec[0]))
			if err != nil || idx != pos {
				return nil, fmt.Errorf("catalog line %d: index %q, want %d", line, rec[0], pos)
			}
		}
		out = append(out, domain.Material{
			Index:       pos,
			Description: strings.TrimSpace(rec[descCol]),
			URL:         strings.TrimSpace(rec[urlCol]),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return out, nil
}
