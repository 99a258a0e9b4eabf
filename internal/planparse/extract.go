// Package planparse turns free-form LLM output into plan bodies, structured
// plan documents, catalog selections and milestone lists.
package planparse

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// Sentinel tags wrapping the plan deliverable in a generation response.
const (
	OpenTag  = "<Smart_Learning_Plan>"
	CloseTag = "</Smart_Learning_Plan>"
)

// ExtractPlan returns the trimmed text between the first open tag and the
// close tag that follows it.
func ExtractPlan(raw string) (string, error) {
	start := strings.Index(raw, OpenTag)
	if start < 0 {
		return "", fmt.Errorf("%w: missing %s tag", domain.ErrMalformedLLMOutput, OpenTag)
	}
	rest := raw[start+len(OpenTag):]
	end := strings.Index(rest, CloseTag)
	if end < 0 {
		return "", fmt.Errorf("%w: missing %s tag", domain.ErrMalformedLLMOutput, CloseTag)
	}
	return strings.TrimSpace(rest[:end]), nil
}

var (
	listLiteral    = regexp.MustCompile(`\[.*?\]`)
	milestoneSpan  = regexp.MustCompile(`(?s)<milestone\d+>(.*?)</milestone\d+>`)
	borderBrackets = map[byte]byte{'[': ']', '(': ')', '{': '}'}
)

// ParseMaterialSelection reads the first integer list literal in resp and
// returns its distinct values in ascending order. Every value must lie in [1, n].
func ParseMaterialSelection(resp string, n int) ([]int, error) {
	lit := listLiteral.FindString(resp)
	if lit == "" {
		return nil, fmt.Errorf("%w: no list literal in response", domain.ErrMaterialSelection)
	}
	body := strings.TrimSpace(lit[1 : len(lit)-1])
	if body == "" {
		return nil, fmt.Errorf("%w: empty selection", domain.ErrMaterialSelection)
	}

	var picked []int
	for _, field := range strings.Split(body, ",") {
		field = strings.Trim(strings.TrimSpace(field), `"'`)
		if field == "" {
			continue
		}
		idx, err := strconv.Atoi(field)
		if err != nil {
			f, ferr := strconv.ParseFloat(field, 64)
			if ferr != nil || f != float64(int(f)) {
				return nil, fmt.Errorf("%w: %q is not an integer", domain.ErrMaterialSelection, field)
			}
			idx = int(f)
		}
		if idx < 1 || idx > n {
			return nil, fmt.Errorf("%w: index %d outside [1, %d]", domain.ErrMaterialSelection, idx, n)
		}
		if !slices.Contains(picked, idx) {
			picked = append(picked, idx)
		}
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: empty selection", domain.ErrMaterialSelection)
	}
	slices.Sort(picked)
	return picked, nil
}

// ExtractMilestones returns every tagged milestone in document order. Suffix
// numbers are ignored. The count is not checked.
func ExtractMilestones(raw string) []string {
	matches := milestoneSpan.FindAllStringSubmatch(raw, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(stripBorder(strings.TrimSpace(m[1]))))
	}
	return out
}

func stripBorder(s string) string {
	if len(s) < 2 {
		return s
	}
	if closing, ok := borderBrackets[s[0]]; ok && s[len(s)-1] == closing {
		return s[1 : len(s)-1]
	}
	return s
}
