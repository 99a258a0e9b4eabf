// Package prompt builds LLM prompts from fixed templates and survey data.
package prompt

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// EndingText closes every onboarding plan. The " :) " marker is swapped for an
// inline image in the PDF copy.
const EndingText = "We are glad to have you onboard :) If you have any questions, please contact teachers."

// TrainingClosingText closes every training plan.
const TrainingClosingText = "We hope you have a fruitful learning period. If you have any questions, please contact teachers."

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Vars maps placeholder names (without braces) to replacement text.
type Vars map[string]string

// Placeholders lists the distinct placeholder names of tmpl in first-seen order.
func Placeholders(tmpl string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Render replaces every placeholder of tmpl with its value in a single pass.
// Inserted text is never scanned again, so values may contain braces.
func Render(tmpl string, vars Vars) (string, error) {
	names := Placeholders(tmpl)
	var missing []string
	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		pairs = append(pairs, "{"+name+"}", v)
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrUnresolvedPlaceholder, strings.Join(missing, ", "))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}

// MustRender is Render for templates whose inputs are fixed at compile time.
func MustRender(tmpl string, vars Vars) string {
	out, err := Render(tmpl, vars)
	if err != nil {
		panic(err)
	}
	return out
}
