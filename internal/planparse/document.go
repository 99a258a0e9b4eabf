package planparse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// ClosingPhrases start the closing paragraph of onboarding and training plans.
var ClosingPhrases = []string{
	"We are glad to have you onboard",
	"We hope you have a fruitful learning period",
}

// Document is the structured view of a plan body.
type Document struct {
	Title        string    `json:"title"`
	Introduction string    `json:"introduction"`
	Sections     []Section `json:"sections"`
	Ending       string    `json:"ending"`
}

// Section is one numbered plan section. At most one of the specialized
// fields is set, depending on the section title.
type Section struct {
	Number      string        `json:"number"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Topics      []Topic       `json:"topics,omitempty"`
	Objectives  Objectives    `json:"objectives,omitempty"`
	Assignments []Assignment  `json:"assignments,omitempty"`
	Materials   []MaterialRef `json:"materials,omitempty"`
}

// Key is the section's key in the JSON sections object.
func (s Section) Key() string { return "section_" + s.Number }

// MarshalJSON encodes sections as an object keyed by section number, in plan order.
func (d Document) MarshalJSON() ([]byte, error) {
	var sections bytes.Buffer
	sections.WriteByte('{')
	for i, s := range d.Sections {
		if i > 0 {
			sections.WriteByte(',')
		}
		body, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		sections.WriteString(strconv.Quote(s.Key()))
		sections.WriteByte(':')
		sections.Write(body)
	}
	sections.WriteByte('}')

	return json.Marshal(struct {
		Title        string          `json:"title"`
		Introduction string          `json:"introduction"`
		Sections     json.RawMessage `json:"sections"`
		Ending       string          `json:"ending"`
	}{d.Title, d.Introduction, sections.Bytes(), d.Ending})
}

// Section returns the section with the given number.
func (d *Document) Section(number int) (Section, bool) {
	want := strconv.Itoa(number)
	for _, s := range d.Sections {
		if s.Number == want {
			return s, true
		}
	}
	return Section{}, false
}

var sectionHeader = regexp.MustCompile(`^(#{1,6}\s*)?(\d+)\.\s+(\S.*)$`)

type header struct {
	line   int
	number int
	title  string
}

// Parse splits a plan body into title, greeting, numbered sections and closing.
// A body without a "Dear" greeting followed by at least one numbered section
// is reported as domain.ErrStructuralParse. Sections whose titles are not
// recognized keep their raw content only.
func Parse(body string) (*Document, error) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	greeting := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "Dear") {
			greeting = i
			break
		}
	}
	if greeting < 0 {
		return nil, fmt.Errorf("%w: no greeting found", domain.ErrStructuralParse)
	}

	headers := findHeaders(lines, greeting+1)
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no numbered section after greeting", domain.ErrStructuralParse)
	}

	doc := &Document{
		Title:        cleanHeading(strings.Join(lines[:greeting], "\n")),
		Introduction: strings.TrimSpace(strings.Join(lines[greeting:headers[0].line], "\n")),
	}
	for i, h := range headers {
		end := len(lines)
		if i+1 < len(headers) {
			end = headers[i+1].line
		}
		content := strings.TrimSpace(strings.Join(lines[h.line+1:end], "\n"))
		if i == len(headers)-1 {
			content, doc.Ending = splitEnding(content)
		}
		doc.Sections = append(doc.Sections, specialize(Section{
			Number:  strconv.Itoa(h.number),
			Title:   h.title,
			Content: content,
		}))
	}
	return doc, nil
}

// findHeaders locates numbered section headers. The first header must follow
// a blank line. When it is a markdown heading, only markdown headings count,
// so numbered lists inside sections stay content. Plain headers must be
// numbered consecutively and follow a blank line.
func findHeaders(lines []string, from int) []header {
	var (
		out         []header
		requireHash bool
	)
	for i := from; i < len(lines); i++ {
		m := sectionHeader.FindStringSubmatch(strings.TrimRight(lines[i], " \t"))
		if m == nil {
			continue
		}
		hashed := m[1] != ""
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch {
		case len(out) == 0:
			if strings.TrimSpace(lines[i-1]) != "" {
				continue
			}
			requireHash = hashed
		case requireHash && !hashed:
			continue
		case !requireHash && (n != out[len(out)-1].number+1 || strings.TrimSpace(lines[i-1]) != ""):
			continue
		}
		out = append(out, header{line: i, number: n, title: strings.TrimSpace(m[3])})
	}
	return out
}

func splitEnding(content string) (string, string) {
	for _, phrase := range ClosingPhrases {
		if i := strings.Index(content, phrase); i >= 0 {
			return strings.TrimSpace(content[:i]), strings.TrimSpace(content[i:])
		}
	}
	return content, ""
}

func cleanHeading(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	return strings.TrimSpace(s)
}

// specialize attaches the parsed sub-structure for known section titles.
// Matching is case-sensitive.
func specialize(s Section) Section {
	switch {
	case strings.Contains(s.Title, "Essential learning topics"):
		if topics, ok := parseTopics(s.Content); ok {
			s.Topics = topics
		}
	case strings.Contains(s.Title, "Learning objectives"):
		if groups, ok := parseObjectives(s.Content); ok {
			s.Objectives = groups
		}
	case strings.Contains(s.Title, "Extra assignments"):
		if assignments, ok := parseAssignments(s.Content); ok {
			s.Assignments = assignments
		}
	case strings.Contains(s.Title, "Additional"):
		if materials, ok := parseMaterials(s.Content); ok {
			s.Materials = materials
		}
	}
	return s
}
