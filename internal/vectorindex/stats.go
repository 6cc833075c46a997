package vectorindex

// Stats summarizes what the index holds.
type Stats struct {
	TotalChunks  int            `json:"total_chunks"`
	Dimension    int            `json:"dimension"`
	ContentTypes map[string]int `json:"content_types"`
	Domains      map[string]int `json:"domains"`
}

// Stats counts stored chunks per content type and per domain. Missing values count as "unknown".
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	stats := Stats{
		TotalChunks:  len(ix.chunks),
		Dimension:    ix.dimension,
		ContentTypes: make(map[string]int),
		Domains:      make(map[string]int),
	}
	for _, c := range ix.chunks {
		stats.ContentTypes[orUnknown(c.ContentType)]++
		domain := c.Metadata.Domain
		if domain == "" {
			domain = c.Metadata.SourceDomain
		}
		stats.Domains[orUnknown(domain)]++
	}
	return stats
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
