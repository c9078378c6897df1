package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashton-krac/carbonchat/vector"
)

func constEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func TestFindDocument(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := NewChromemVectorDB(vector.Config{Collection: "carbon-docs"}, constEmbedding)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	c, err := db.Collection("carbon-docs")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	doc := vector.Document{
		ID:      "doc_1",
		Content: "Primary button color is #0f62fe.",
	}

	if err := c.AddDocument(ctx, doc); err != nil {
		assert.Fail(err.Error())
		return
	}

	found, err := c.FindDocument(ctx, "doc_1")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(doc.Content, found.Content)

	_, err = c.FindDocument(ctx, "doc_missing")
	assert.ErrorIs(err, vector.ErrDocumentNotFound)
}
