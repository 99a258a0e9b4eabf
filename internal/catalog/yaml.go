package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// LoadSurveys reads survey records from YAML. The document is either a list
// of answer mappings or a mapping of respondent label to answer mapping.
// Answer order follows the file.
func LoadSurveys(path string) ([]domain.SurveyRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read surveys: %w", err)
	}
	return ParseSurveys(data)
}

// ParseSurveys decodes the survey YAML document.
func ParseSurveys(data []byte) ([]domain.SurveyRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode surveys: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("decode surveys: empty document")
	}

	root := doc.Content[0]
	var respondents []*yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		respondents = root.Content
	case yaml.MappingNode:
		for i := 1; i < len(root.Content); i += 2 {
			respondents = append(respondents, root.Content[i])
		}
	default:
		return nil, fmt.Errorf("decode surveys: line %d: expected list or mapping", root.Line)
	}

	out := make([]domain.SurveyRecord, 0, len(respondents))
	for _, n := range respondents {
		rec, err := surveyFromNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func surveyFromNode(n *yaml.Node) (domain.SurveyRecord, error) {
	if n.Kind != yaml.MappingNode {
		return domain.SurveyRecord{}, fmt.Errorf("decode surveys: line %d: expected answer mapping", n.Line)
	}
	answers := make([]domain.Answer, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return domain.SurveyRecord{}, fmt.Errorf("decode surveys: line %d: answer to %q must be text", val.Line, key.Value)
		}
		answers = append(answers, domain.Answer{Key: key.Value, Value: val.Value})
	}
	return domain.NewSurveyRecord(answers...), nil
}

// LoadBeginnerMaterials reads the mapping of skill question key to curated text.
func LoadBeginnerMaterials(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read beginner materials: %w", err)
	}
	out := make(map[string]string)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode beginner materials: %w", err)
	}
	return out, nil
}
