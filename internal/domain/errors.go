package domain

import "errors"

// Error taxonomy shared by the generation pipeline and the serving layer.
var (
	// ErrNotFound is returned when a student id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks a request that can never succeed as submitted.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLLMUnavailable is returned once a provider call has exhausted its retry budget.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrMalformedLLMOutput is returned when the sentinel tags are missing from a generation response.
	ErrMalformedLLMOutput = errors.New("malformed llm output")
	// ErrMaterialSelection is returned when the curated material selection is missing or out of range.
	ErrMaterialSelection = errors.New("material selection")
	// ErrStructuralParse is returned when a plan body has no title and greeting preamble.
	ErrStructuralParse = errors.New("structural parse")
	// ErrStateIO wraps persistence failures of per-student state files.
	ErrStateIO = errors.New("state io")
	// ErrUnresolvedPlaceholder is returned when a template is rendered without all of its values.
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
	// ErrTemplateDrift is returned when fixed boilerplate no longer has the expected shape.
	ErrTemplateDrift = errors.New("template drift")
)
