package models

import "time"

// Retrieval method choices accepted by the chat endpoint.
const (
	RetrievalVector = "vector"
	RetrievalHybrid = "hybrid"
)

// ChatRequest is the edit/create request body for POST /api/chat.
type ChatRequest struct {
	Message       string   `json:"message" binding:"required"`
	PageSlug      string   `json:"page_slug,omitempty"`
	Method        string   `json:"method,omitempty"`
	SelectedHTML  string   `json:"selected_html,omitempty"`
	SelectedPath  []string `json:"selected_path,omitempty"`
	SystemContext string   `json:"system_context,omitempty"`
	ReferenceURL  string   `json:"reference_url,omitempty"`
	ExtractImages bool     `json:"extract_images,omitempty"`
}

// ChatResponse is returned for every chat request, including runs that
// exhausted their validation retries: Validation carries the outstanding
// issues so the caller can tell the user the saved page may be imperfect.
type ChatResponse struct {
	Answer     string             `json:"answer"`
	Saved      bool               `json:"saved"`
	Slug       string             `json:"slug,omitempty"`
	Attempts   int                `json:"attempts"`
	Timings    map[string]float64 `json:"timings"`
	Validation *ValidationResult  `json:"validation,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}
