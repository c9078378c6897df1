package carbonchat

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ashton-krac/carbonchat/corpus"
	"github.com/ashton-krac/carbonchat/llm"
	"github.com/ashton-krac/carbonchat/vector"
)

var (
	ErrMissingAPIKey    = errors.New("missing OpenAI API key")
	ErrEmptyQuestion    = errors.New("empty question")
	ErrNoDocumentsFound = errors.New("no documents found")
	ErrGeneratorNotSet  = errors.New("generator not set")
	ErrVectorDBNotSet   = errors.New("vector database not set")
)

// SentinelExit ends an interactive session. Exact, case-sensitive match.
const SentinelExit = "exit"

const DefaultTopK = 2

type Config struct {
	Corpus   string                `yaml:"corpus"`
	TopK     int                   `yaml:"topK"`
	Timeout  Duration              `yaml:"timeout"`
	Chunking corpus.ChunkingConfig `yaml:"chunking"`
	Vector   vector.Config         `yaml:"vector"`
	LLM      llm.Config            `yaml:"llm"`
}

// ApplyDefaults fills unset fields. Paths are left alone; the command layer
// resolves them against its base directory.
func (cfg *Config) ApplyDefaults() {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	if cfg.Timeout.Duration() <= 0 {
		cfg.Timeout = Duration(60 * time.Second)
	}

	if cfg.Chunking.Size <= 0 {
		cfg.Chunking.Size = corpus.DefaultChunkSize
	}

	if cfg.Chunking.Overlap <= 0 {
		cfg.Chunking.Overlap = corpus.DefaultChunkOverlap
	}

	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "carbon-docs"
	}

	if cfg.Vector.EmbeddingModel == "" {
		cfg.Vector.EmbeddingModel = "text-embedding-3-small"
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}

	if cfg.LLM.Temperature <= 0 {
		cfg.LLM.Temperature = 0.1
	}
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	str := d.Duration().String()
	return yaml.Marshal(str)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// Metadata keys carried by every stored record. Each record's metadata
// traces back to exactly one source document.
const (
	MetadataTitle      = "title"
	MetadataURL        = "url"
	MetadataChunkIndex = "chunk"
)

// ChunkToRecord builds the stored record for one chunk of a document. The
// record ID is a content hash, so re-indexing the same corpus produces the
// same IDs and already-embedded chunks can be recognized.
func ChunkToRecord(doc corpus.Document, chunk corpus.Chunk) vector.Document {
	return vector.Document{
		ID:      generateRecordID(doc, chunk),
		Content: chunk.Content,
		Metadata: map[string]string{
			MetadataTitle:      doc.Title,
			MetadataURL:        doc.URL,
			MetadataChunkIndex: strconv.Itoa(chunk.Index),
		},
	}
}

func generateRecordID(doc corpus.Document, chunk corpus.Chunk) string {
	data := fmt.Sprintf("%s|%s|%d|%s", doc.URL, doc.Title, chunk.Index, chunk.Content)

	hash := sha256.Sum256([]byte(data))
	return "doc_" + hex.EncodeToString(hash[:12])
}

type IndexSummary struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Skipped   int `json:"skipped"`
}

// The instruction segment restricts the generator to the retrieved
// documentation; answering from outside it is a correctness bug, not a
// style choice.
const answerInstructions = `You are an expert on the IBM Carbon Design System.
Answer using ONLY the provided documentation. If the specific information
isn't in the documentation, say that it is not covered by the documentation
instead of guessing. Give a URL for more information on the related topic,
at hand.`

// BuildPrompt composes the grounded prompt: instructions, the retrieved
// context rendered as "From {title}:", and the question.
func BuildPrompt(question string, docs []vector.Document) (system string, user string) {
	var b strings.Builder

	b.WriteString("Documentation:\n")
	for _, doc := range docs {
		fmt.Fprintf(&b, "From %s:\n%s\n\n", doc.Metadata[MetadataTitle], doc.Content)
	}

	fmt.Fprintf(&b, "Question: %s", question)

	return answerInstructions, b.String()
}
