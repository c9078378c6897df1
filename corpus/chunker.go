package corpus

import "strings"

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

const (
	DefaultChunkSize    = 200
	DefaultChunkOverlap = 40
)

// Chunk is one embeddable slice of a document's content. Index is the
// position of the chunk within its source document.
type Chunk struct {
	Index   int
	Content string
}

// Splitter splits text into overlapping word-based chunks.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a splitter with the given size and overlap (in words).
// Non-positive values fall back to the defaults.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}

	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	return &Splitter{
		size:    size,
		overlap: overlap,
	}
}

// Split breaks text into overlapping windows. Whitespace-only text yields
// no chunks.
func (s *Splitter) Split(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := s.size - s.overlap
	if step <= 0 {
		step = 1
	}

	var chunks []Chunk
	for i := 0; i < len(words); i += step {
		end := i + s.size
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Content: strings.Join(words[i:end], " "),
		})

		if end >= len(words) {
			break
		}
	}

	return chunks
}
