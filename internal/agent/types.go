// Package agent runs one tool-augmented conversational assistant per
// student and serves it over HTTP.
package agent

import (
	"encoding/json"
	"errors"
)

// ErrToolLoop is returned when the model keeps requesting tools past the
// step limit of a turn.
var ErrToolLoop = errors.New("tool step limit reached")

// ChatRequest is the body of a one-shot chat call. History is accepted for
// client compatibility; the checkpointed thread is the conversation memory.
type ChatRequest struct {
	UserID  string          `json:"user_id"`
	Message string          `json:"message"`
	History json.RawMessage `json:"history,omitempty"`
}

// ChatResponse is the final assistant message of a turn.
type ChatResponse struct {
	Response string `json:"response"`
}

// SettingsRequest replaces a student's assistant settings.
type SettingsRequest struct {
	UserID                  string  `json:"user_id"`
	SystemPrompt            string  `json:"system_prompt"`
	Temperature             float64 `json:"temperature"`
	UsePlanTool             bool    `json:"use_plan_tool"`
	UseSearchTool           bool    `json:"use_search_tool"`
	UseLearningMaterialTool bool    `json:"use_learningmaterial_tool"`
	UseMilestonesTool       bool    `json:"use_milestones_tool"`
}

// Event is one step of a running turn: a text delta from the model or the
// name of a tool that has just run.
type Event struct {
	Delta string
	Tool  string
}

// StreamEvent carries a cumulative snapshot of the reply, or the error that
// ended the turn. The channel closing marks the end of the stream.
type StreamEvent struct {
	Snapshot string
	Err      error
}

// ToolMarker is appended to a streamed reply whenever a tool runs.
func ToolMarker(name string) string {
	return "\n[used tool \"" + name + "\"]\n"
}
