package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/search"
)

// Tool names exposed to the model.
const (
	ToolWebSearch  = "web_search"
	ToolPhase1Plan = "phase1_plan_tool"
	ToolPhase2Plan = "phase2_plan_tool"
	ToolMaterials  = "additional_materials_tool"
	ToolMilestones = "milestones_tool"
)

// Tool is a function the model may call during a turn.
type Tool interface {
	Name() string
	Definition() llms.Tool
	Call(ctx context.Context, arguments string) (string, error)
}

var noArguments = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

func functionTool(name, description string, params map[string]any) llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

type searchTool struct {
	searcher search.Searcher
}

func (searchTool) Name() string { return ToolWebSearch }

func (searchTool) Definition() llms.Tool {
	return functionTool(ToolWebSearch,
		"Search the web for current information. Input should be a search query.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "search query to look up"},
			},
			"required": []string{"query"},
		})
}

func (t searchTool) Call(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("decode search arguments: %w", err)
	}
	resp, err := t.searcher.Search(ctx, args.Query)
	if err != nil {
		return "", err
	}
	type hit struct {
		URL     string `json:"url"`
		Content string `json:"content"`
	}
	out := struct {
		Answer  string `json:"answer,omitempty"`
		Results []hit  `json:"results"`
	}{Answer: resp.Answer, Results: make([]hit, 0, len(resp.Results))}
	for _, r := range resp.Results {
		out.Results = append(out.Results, hit{URL: r.URL, Content: r.Content})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode search results: %w", err)
	}
	return string(data), nil
}

// planTool returns the student's own plan for one phase.
type planTool struct {
	name      string
	phase     domain.Phase
	studentID string
	bundles   BundleSource
}

func (t planTool) Name() string { return t.name }

func (t planTool) Definition() llms.Tool {
	return functionTool(t.name, "Contains the personalized smart learning plan created for the student", noArguments)
}

func (t planTool) Call(context.Context, string) (string, error) {
	bundle, err := t.bundles.Get(t.studentID)
	if err != nil {
		return "", err
	}
	return bundle.Plan(t.phase)
}

type materialsTool struct {
	catalog []domain.Material
}

func (materialsTool) Name() string { return ToolMaterials }

func (materialsTool) Definition() llms.Tool {
	return functionTool(ToolMaterials,
		"List of additional learning materials, such as videos, articles and courses, covering topics of teaching",
		noArguments)
}

func (t materialsTool) Call(context.Context, string) (string, error) {
	var b strings.Builder
	for _, m := range t.catalog {
		fmt.Fprintf(&b, "%d: %s\n", m.Index, m.ToolLine())
	}
	return b.String(), nil
}

type milestonesTool struct {
	studentID string
	bundles   BundleSource
}

func (milestonesTool) Name() string { return ToolMilestones }

func (milestonesTool) Definition() llms.Tool {
	return functionTool(ToolMilestones, "Contains the personalized milestones (max 10) created for the student", noArguments)
}

func (t milestonesTool) Call(context.Context, string) (string, error) {
	bundle, err := t.bundles.Get(t.studentID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(bundle.Milestones)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// buildTools binds the enabled tools to one student. Phase 1 gets the
// onboarding plan, every later phase the training plan.
func buildTools(phase domain.Phase, studentID string, bundles BundleSource, catalog []domain.Material, searcher search.Searcher, s domain.AgentSettings) []Tool {
	var tools []Tool
	if s.UseSearchTool && searcher != nil {
		tools = append(tools, searchTool{searcher: searcher})
	}
	if s.UsePlanTool {
		plan := planTool{phase: domain.PhaseTraining, name: ToolPhase2Plan, studentID: studentID, bundles: bundles}
		if phase == domain.PhaseOnboarding {
			plan.phase, plan.name = domain.PhaseOnboarding, ToolPhase1Plan
		}
		tools = append(tools, plan)
	}
	if s.UseLearningMaterialTool {
		tools = append(tools, materialsTool{catalog: catalog})
	}
	if s.UseMilestonesTool {
		tools = append(tools, milestonesTool{studentID: studentID, bundles: bundles})
	}
	return tools
}
