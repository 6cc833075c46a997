package types

// ChunkMetadata describes where a chunk came from.
type ChunkMetadata struct {
	Domain        string   `json:"domain,omitempty"`
	SourceDomain  string   `json:"source_domain,omitempty"`
	Title         string   `json:"title,omitempty"`
	Depth         int      `json:"depth"`
	PageURL       string   `json:"page_url,omitempty"`
	JSONKeys      []string `json:"json_keys,omitempty"`
	ImageFilename string   `json:"image_filename,omitempty"`
}

// Chunk is a token-bounded slice of page text, the unit stored in the vector index.
type Chunk struct {
	Text        string        `json:"text"`
	Tokens      int           `json:"tokens"`
	URL         string        `json:"url"`
	ChunkID     int           `json:"chunk_id"`
	ContentType string        `json:"content_type"`
	Metadata    ChunkMetadata `json:"metadata"`
	Embedding   []float32     `json:"embedding,omitempty"`
}

// SearchResult is a chunk returned from a similarity search.
// SimilarityScore is the raw squared L2 distance: lower means more similar.
type SearchResult struct {
	Chunk
	SimilarityScore float64 `json:"similarity_score"`
	Rank            int     `json:"rank"`
}
