package vector

import (
	"context"
	"errors"
)

// ErrDocumentNotFound reports a lookup for an ID the collection does not
// hold. Other errors from FindDocument are genuine store failures.
var ErrDocumentNotFound = errors.New("document not found")

type Config struct {
	Path           string `yaml:"path"`
	Collection     string `yaml:"collection"`
	EmbeddingModel string `yaml:"embeddingModel"`
}

type VectorDB interface {
	Collection(name string) (Collection, error)
	DeleteCollection(name string) error
}

type Collection interface {
	AddDocument(ctx context.Context, doc Document) error
	FindDocument(ctx context.Context, id string) (Document, error)
	Query(ctx context.Context, query string, k int) ([]Document, error)
	Count() int
}

type Document struct {
	ID         string            `json:"id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Similarity float32           `json:"similarity,omitempty"`
}
