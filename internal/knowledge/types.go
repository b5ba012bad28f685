package knowledge

// Match is one search hit: a chunk of indexed study material with its
// cosine similarity to the query.
type Match struct {
	DocID      string  `json:"doc_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Chunk      string  `json:"chunk"`
	Similarity float64 `json:"similarity"`
}

// SubjectStats summarizes one subject's index.
type SubjectStats struct {
	Subject   string   `json:"subject"`
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Sources   []string `json:"sources,omitempty"`
}
