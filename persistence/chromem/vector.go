package chromem

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"

	"github.com/ashton-krac/carbonchat/vector"
)

// NewChromemVectorDB opens a chromem-go database. An empty path yields an
// in-memory store; otherwise the store persists under cfg.Path.
func NewChromemVectorDB(cfg vector.Config, embedding chromem.EmbeddingFunc) (vector.VectorDB, error) {
	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemVectorDB{db, embedding}, nil
}

type chromemVectorDB struct {
	db        *chromem.DB
	embedding chromem.EmbeddingFunc
}

func (vdb *chromemVectorDB) Collection(name string) (vector.Collection, error) {
	c, err := vdb.db.GetOrCreateCollection(name, nil, vdb.embedding)
	if err != nil {
		return nil, err
	}

	return &collection{c}, nil
}

func (vdb *chromemVectorDB) DeleteCollection(name string) error {
	return vdb.db.DeleteCollection(name)
}

type collection struct {
	collection *chromem.Collection
}

func (c *collection) AddDocument(ctx context.Context, doc vector.Document) error {
	document := chromem.Document{
		ID:        doc.ID,
		Metadata:  doc.Metadata,
		Embedding: doc.Embedding,
		Content:   doc.Content,
	}

	return c.collection.AddDocument(ctx, document)
}

func (c *collection) FindDocument(ctx context.Context, id string) (vector.Document, error) {
	document, err := c.collection.GetByID(ctx, id)
	if err != nil {
		// chromem reports a missing ID with a plain error, not a sentinel.
		if strings.Contains(err.Error(), "not found") {
			return vector.Document{}, fmt.Errorf("%w: %s", vector.ErrDocumentNotFound, id)
		}

		return vector.Document{}, err
	}

	return vector.Document{
		ID:        document.ID,
		Metadata:  document.Metadata,
		Embedding: document.Embedding,
		Content:   document.Content,
	}, nil
}

func (c *collection) Query(ctx context.Context, query string, k int) ([]vector.Document, error) {
	if k > c.collection.Count() {
		k = c.collection.Count()
	}

	results, err := c.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Document, len(results))
	for i, result := range results {
		docs[i] = vector.Document{
			ID:         result.ID,
			Metadata:   result.Metadata,
			Embedding:  result.Embedding,
			Content:    result.Content,
			Similarity: result.Similarity,
		}
	}

	return docs, nil
}

func (c *collection) Count() int {
	return c.collection.Count()
}
