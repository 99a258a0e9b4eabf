package planparse

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Topic is one numbered entry of the essential learning topics section.
type Topic struct {
	Number      string `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ObjectiveGroup is a category heading with its bullet items.
type ObjectiveGroup struct {
	Category string
	Items    []string
}

// Objectives keeps category order; it encodes as a JSON object.
type Objectives []ObjectiveGroup

// MarshalJSON encodes the groups as {category: [items...]} in order.
func (o Objectives) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		items := g.Items
		if items == nil {
			items = []string{}
		}
		body, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		buf.WriteString(strconv.Quote(g.Category))
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Assignment is one extra assignment. Task is always present.
type Assignment struct {
	Title        string `json:"title"`
	Task         string `json:"task"`
	Process      string `json:"process,omitempty"`
	Tools        string `json:"tools,omitempty"`
	SamplePrompt string `json:"sample_prompt,omitempty"`
}

// MaterialRef is one numbered entry of the additional materials section.
type MaterialRef struct {
	Number      string `json:"number"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

var (
	topicHeader     = regexp.MustCompile(`^(?:#{1,6}\s*(\d+)\.?|(\d+))\s+(\S.*)$`)
	bulletItem      = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+(.*)$`)
	assignmentField = regexp.MustCompile(`^\s*(?:[-*+•]\s+)?(?:\*\*|__)?(Task|Process|Tools?|Sample prompt)(?:\*\*|__)?\s*:\s*(?:\*\*|__)?\s*(.*)$`)
	materialItem    = regexp.MustCompile(`^(\d+):\s*(.*)$`)
	urlToken        = regexp.MustCompile(`https?://\S+`)
)

func parseTopics(content string) ([]Topic, bool) {
	var (
		topics []Topic
		desc   []string
	)
	flush := func() {
		if len(topics) > 0 {
			topics[len(topics)-1].Description = strings.TrimSpace(strings.Join(desc, "\n"))
		}
		desc = nil
	}
	for _, line := range strings.Split(content, "\n") {
		m := topicHeader.FindStringSubmatch(strings.TrimRight(line, " \t"))
		if m == nil {
			desc = append(desc, line)
			continue
		}
		flush()
		num := m[1]
		if num == "" {
			num = m[2]
		}
		topics = append(topics, Topic{Number: num, Title: strings.TrimSpace(m[3])})
	}
	flush()
	return topics, len(topics) > 0
}

func parseObjectives(content string) (Objectives, bool) {
	lines := strings.Split(content, "\n")
	var groups Objectives
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := bulletItem.FindStringSubmatch(line)
		if m != nil && !(indent(line) == 0 && nestsBullets(lines, i)) {
			if len(groups) == 0 {
				return nil, false
			}
			g := &groups[len(groups)-1]
			g.Items = append(g.Items, strings.TrimSpace(m[1]))
			continue
		}
		if m == nil && indent(line) > 0 && len(groups) > 0 && len(groups[len(groups)-1].Items) > 0 {
			g := &groups[len(groups)-1]
			g.Items[len(g.Items)-1] += " " + strings.TrimSpace(line)
			continue
		}
		groups = append(groups, ObjectiveGroup{Category: cleanLabel(line)})
	}
	return groups, len(groups) > 0
}

// nestsBullets reports whether the next non-blank line after i is an indented bullet.
func nestsBullets(lines []string, i int) bool {
	for _, next := range lines[i+1:] {
		if strings.TrimSpace(next) == "" {
			continue
		}
		return indent(next) > 0 && bulletItem.MatchString(next)
	}
	return false
}

func indent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func parseAssignments(content string) ([]Assignment, bool) {
	lines := strings.Split(content, "\n")
	var (
		out   []Assignment
		cur   *Assignment
		field *string
	)
	flush := func() {
		if cur != nil && cur.Task != "" {
			out = append(out, *cur)
		}
		cur, field = nil, nil
	}
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := assignmentField.FindStringSubmatch(line); m != nil {
			if cur == nil || (m[1] == "Task" && cur.Task != "") {
				flush()
				cur = &Assignment{}
			}
			field = assignmentSlot(cur, m[1])
			*field = strings.TrimSpace(m[2])
			continue
		}
		switch {
		case titlesTask(lines, i):
			flush()
			cur = &Assignment{Title: cleanLabel(trimmed)}
		case field != nil:
			if *field == "" {
				*field = trimmed
			} else {
				*field += "\n" + trimmed
			}
		case cur != nil:
			cur.Title = strings.TrimSpace(cur.Title + " " + cleanLabel(trimmed))
		}
	}
	flush()
	return out, len(out) > 0
}

// titlesTask reports whether the line after i is a Task field, making line i
// an assignment title.
func titlesTask(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	m := assignmentField.FindStringSubmatch(lines[i+1])
	return m != nil && m[1] == "Task"
}

func assignmentSlot(a *Assignment, label string) *string {
	switch label {
	case "Task":
		return &a.Task
	case "Process":
		return &a.Process
	case "Tool", "Tools":
		return &a.Tools
	default:
		return &a.SamplePrompt
	}
}

func parseMaterials(content string) ([]MaterialRef, bool) {
	var out []MaterialRef
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := materialItem.FindStringSubmatch(trimmed); m != nil {
			desc, url := splitMaterial(m[2])
			out = append(out, MaterialRef{Number: m[1], Description: desc, URL: url})
			continue
		}
		if len(out) > 0 && out[len(out)-1].URL == "" {
			if url := urlToken.FindString(trimmed); url != "" {
				out[len(out)-1].URL = url
			}
		}
	}
	return out, len(out) > 0
}

func splitMaterial(s string) (string, string) {
	if i := strings.Index(s, "<br>"); i >= 0 {
		return strings.TrimSpace(s[:i]), urlToken.FindString(s[i+len("<br>"):])
	}
	return strings.TrimSpace(s), ""
}

// cleanLabel strips heading and emphasis markers and a trailing colon.
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if m := bulletItem.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimLeft(s, "# ")
	s = strings.Trim(s, "*_")
	s = strings.TrimSuffix(strings.TrimSpace(s), ":")
	return strings.TrimSpace(strings.Trim(s, "*_"))
}
