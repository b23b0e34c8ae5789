package models

import "strconv"

// Chunk is one stored fragment of a page's text content, keyed by
// (slug, chunk_id). Embedding may be nil for raw-HTML fallback chunks.
type Chunk struct {
	ID        int64     `json:"id,omitempty"`
	Slug      string    `json:"slug"`
	ChunkID   int       `json:"chunk_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	DOMPath   string    `json:"dom_path,omitempty"`
}

// ChunkRef is the slimmed form persisted in run records: enough to audit
// which chunks a retrieval returned without duplicating their content.
type ChunkRef struct {
	Slug    string `json:"slug"`
	ChunkID int    `json:"chunk_id"`
	DOMPath string `json:"dom_path,omitempty"`
	Preview string `json:"preview"`
}

// Ref slims a chunk down for the run log, keeping a short content preview.
func (c Chunk) Ref() ChunkRef {
	preview := c.Content
	if len(preview) > 120 {
		preview = preview[:120]
	}
	return ChunkRef{
		Slug:    c.Slug,
		ChunkID: c.ChunkID,
		DOMPath: c.DOMPath,
		Preview: preview,
	}
}

// Key identifies a chunk across ranked lists during rank fusion.
func (c Chunk) Key() string {
	return c.Slug + "#" + strconv.Itoa(c.ChunkID)
}
