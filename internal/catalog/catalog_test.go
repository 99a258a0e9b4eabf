package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

func TestParseMaterialsWithIndexColumn(t *testing.T) {
	t.Parallel()

	in := "idx|description|url\n1|Intro to AI|https://example.com/ai\n2|Pitching 101 | https://example.com/pitch\n\n"
	got, err := ParseMaterials(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []domain.Material{
		{Index: 1, Description: "Intro to AI", URL: "https://example.com/ai"},
		{Index: 2, Description: "Pitching 101", URL: "https://example.com/pitch"},
	}, got)
	assert.Equal(t, "Intro to AI URL: https://example.com/ai", got[0].ToolLine())
}

func TestParseMaterialsRejectsGaps(t *testing.T) {
	t.Parallel()

	_, err := ParseMaterials(strings.NewReader("idx|description|url\n1|a|u\n3|b|v\n"))
	assert.ErrorContains(t, err, "want 2")

	_, err = ParseMaterials(strings.NewReader("name|link\na|b\n"))
	assert.ErrorContains(t, err, "description and url")

	_, err = ParseMaterials(strings.NewReader("description|url\n"))
	assert.ErrorContains(t, err, "empty")
}

func TestParseSurveysKeepsOrder(t *testing.T) {
	t.Parallel()

	doc := `
- "Q1. Full Name": Ada Lovelace
  "Q5. Contact Information, email": ada@example.com
  "Q11.1. Generative AI": Basic (Beginner)
- "Q1. Full Name": Bo
  "Q5. Contact Information, email": bo@example.com
`
	got, err := ParseSurveys([]byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []domain.Answer{
		{Key: "Q1. Full Name", Value: "Ada Lovelace"},
		{Key: "Q5. Contact Information, email", Value: "ada@example.com"},
		{Key: "Q11.1. Generative AI", Value: "Basic (Beginner)"},
	}, got[0].Answers)
}

func TestParseSurveysMappingOfRespondents(t *testing.T) {
	t.Parallel()

	doc := "persona_1:\n  Q2. Age: 31\n  Q1. Full Name: Ada\npersona_2:\n  Q1. Full Name: Bo\n"
	got, err := ParseSurveys([]byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Q2. Age", got[0].Answers[0].Key)
	assert.Equal(t, "31", got[0].Answers[0].Value)
	assert.Equal(t, "Bo", got[1].Name())
}

func TestParseSurveysRejectsNestedAnswers(t *testing.T) {
	t.Parallel()

	_, err := ParseSurveys([]byte("- Q1. Full Name:\n    first: Ada\n"))
	assert.ErrorContains(t, err, "must be text")
}

func TestLoadBeginnerMaterialsAndDescription(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mat := filepath.Join(dir, "beginner.yaml")
	require.NoError(t, os.WriteFile(mat, []byte("\"Q11.1. Generative AI\": |\n  Watch the video.\n  https://example.com\n"), 0o600))
	got, err := LoadBeginnerMaterials(mat)
	require.NoError(t, err)
	assert.Equal(t, "Watch the video.\nhttps://example.com\n", got["Q11.1. Generative AI"])

	desc := filepath.Join(dir, "course.txt")
	require.NoError(t, os.WriteFile(desc, []byte(`{"modules": []}`), 0o600))
	text, err := LoadCourseDescription(desc)
	require.NoError(t, err)
	assert.Equal(t, `{"modules": []}`, text)
}
