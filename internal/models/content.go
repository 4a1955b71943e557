package models

// Content type tags carried on sources and queued items.
const (
	ContentTypeDocument = "document"
	ContentTypeNotebook = "notebook"
)

// ContentSource describes one piece of generatable content prepared by the
// authoring pipeline. The rendered payload fields (body, hashtags, link,
// media) are opaque blobs here; this system never parses or validates them.
type ContentSource struct {
	SourceID    string      `json:"source_id"`
	Name        string      `json:"name"`
	ContentType string      `json:"content_type"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Tags        StringArray `json:"tags"`

	// Capability flags
	UsesSymbolicMath   bool `json:"uses_symbolic_math"`
	UsesComputation    bool `json:"uses_computation"`
	HasRenderedFigures bool `json:"has_rendered_figures"`

	// Complexity hint, 1-5
	Complexity int `json:"complexity"`

	// Rendered payload, prepared upstream
	Body      string      `json:"body"`
	Hashtags  StringArray `json:"hashtags"`
	Link      string      `json:"link"`
	MediaPath string      `json:"media_path,omitempty"`
	AltText   string      `json:"alt_text,omitempty"`
}
