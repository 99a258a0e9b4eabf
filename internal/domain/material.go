package domain

// Material is one item of the curated additional-materials catalog.
type Material struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// ToolLine renders the material the way the assistant tool exposes it.
func (m Material) ToolLine() string {
	return m.Description + " URL: " + m.URL
}
