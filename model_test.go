package carbonchat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/ashton-krac/carbonchat/corpus"
	"github.com/ashton-krac/carbonchat/vector"
)

func TestConfigYAMLUnmarshal(t *testing.T) {
	assert := assert.New(t)

	input := `corpus: ibm_carbon_v1.json
topK: 3
timeout: 30s
chunking:
  size: 100
  overlap: 20
vector:
  path: ./vectors
  collection: carbon-docs
llm:
  model: gpt-4o
  temperature: 0.1`

	var cfg Config
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("ibm_carbon_v1.json", cfg.Corpus)
	assert.Equal(3, cfg.TopK)
	assert.Equal(30*time.Second, cfg.Timeout.Duration())
	assert.Equal(100, cfg.Chunking.Size)
	assert.Equal("carbon-docs", cfg.Vector.Collection)
	assert.Equal("gpt-4o", cfg.LLM.Model)
}

func TestConfigApplyDefaults(t *testing.T) {
	assert := assert.New(t)

	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(DefaultTopK, cfg.TopK)
	assert.Equal(60*time.Second, cfg.Timeout.Duration())
	assert.Equal(corpus.DefaultChunkSize, cfg.Chunking.Size)
	assert.Equal("carbon-docs", cfg.Vector.Collection)
	assert.Equal("text-embedding-3-small", cfg.Vector.EmbeddingModel)
	assert.Equal("gpt-4o", cfg.LLM.Model)
	assert.InDelta(0.1, cfg.LLM.Temperature, 0.001)
}

func TestDurationJSONUnmarshal(t *testing.T) {
	assert := assert.New(t)

	var d Duration
	if err := json.Unmarshal([]byte(`"90s"`), &d); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(90*time.Second, d.Duration())
}

func TestChunkToRecord(t *testing.T) {
	assert := assert.New(t)

	doc := corpus.Document{
		Title:   "Buttons",
		URL:     "https://carbondesignsystem.com/components/button/usage",
		Content: "Primary button color is #0f62fe.",
	}

	chunk := corpus.Chunk{
		Index:   0,
		Content: doc.Content,
	}

	record := ChunkToRecord(doc, chunk)

	assert.NotEmpty(record.ID)
	assert.Equal(doc.Content, record.Content)
	assert.Equal("Buttons", record.Metadata[MetadataTitle])
	assert.Equal(doc.URL, record.Metadata[MetadataURL])
	assert.Equal("0", record.Metadata[MetadataChunkIndex])

	// Same input, same ID; different chunk index, different ID.
	again := ChunkToRecord(doc, chunk)
	assert.Equal(record.ID, again.ID)

	other := ChunkToRecord(doc, corpus.Chunk{Index: 1, Content: doc.Content})
	assert.NotEqual(record.ID, other.ID)
}

func TestBuildPrompt(t *testing.T) {
	assert := assert.New(t)

	docs := []vector.Document{
		{
			Content: "Primary button color is #0f62fe.",
			Metadata: map[string]string{
				MetadataTitle: "Buttons",
				MetadataURL:   "u1",
			},
		},
		{
			Content: "The grid uses a 16 column layout.",
			Metadata: map[string]string{
				MetadataTitle: "Grid",
				MetadataURL:   "u2",
			},
		},
	}

	system, user := BuildPrompt("What color are primary buttons?", docs)

	assert.Contains(system, "ONLY the provided documentation")
	assert.Contains(system, "not covered by the documentation")

	assert.Contains(user, "From Buttons:\nPrimary button color is #0f62fe.")
	assert.Contains(user, "From Grid:")
	assert.Contains(user, "Question: What color are primary buttons?")
}
