package carbonchat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ashton-krac/carbonchat/corpus"
	"github.com/ashton-krac/carbonchat/llm"
	"github.com/ashton-krac/carbonchat/vector"
)

// Service defines the core logic of the Carbon documentation chatbot.
type Service interface {

	// Close releases any resources held by the service.
	Close() error

	// IndexCorpus chunks and embeds a document collection into the vector
	// store. Documents with empty content are skipped and counted.
	IndexCorpus(ctx context.Context, docs []corpus.Document) (*IndexSummary, error)

	// Search returns the k stored records most similar to the query,
	// ordered by descending similarity. If fewer than k records exist,
	// all of them are returned.
	Search(ctx context.Context, query string, k ...int) ([]vector.Document, error)

	// Ask retrieves context for the question and streams a grounded
	// answer. The channel is closed at end of stream; a fragment with Err
	// set signals an interrupted generation.
	Ask(ctx context.Context, question string) (<-chan llm.Fragment, error)
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, db vector.VectorDB, gen llm.Generator) (Service, error) {
	log := zap.L().With(
		zap.String("service", "carbonchat"),
	)

	if db == nil {
		return nil, ErrVectorDBNotSet
	}

	collection, err := db.Collection(cfg.Vector.Collection)
	if err != nil {
		return nil, err
	}

	return &service{
		collection: collection,
		splitter:   corpus.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap),
		gen:        gen,

		cfg: cfg,
		log: log,
	}, nil
}

type service struct {
	// Collection is thread-safe by itself
	collection vector.Collection

	splitter *corpus.Splitter
	gen      llm.Generator

	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	return nil
}

func (svc *service) IndexCorpus(ctx context.Context, docs []corpus.Document) (*IndexSummary, error) {
	log := svc.log.With(
		zap.String("action", "index_corpus"),
	)

	summary := &IndexSummary{}

	for i, doc := range docs {
		log := log.With(
			zap.Int("position", i),
			zap.String("title", doc.Title),
		)

		if strings.TrimSpace(doc.Content) == "" {
			summary.Skipped++
			log.Warn("document has no content, skipping")
			continue
		}

		summary.Documents++

		for _, chunk := range svc.splitter.Split(doc.Content) {
			record := ChunkToRecord(doc, chunk)

			// Content-hash IDs: an existing record means this exact
			// chunk was embedded on a previous run.
			_, err := svc.collection.FindDocument(ctx, record.ID)
			if err == nil {
				continue
			}

			if !errors.Is(err, vector.ErrDocumentNotFound) {
				return nil, fmt.Errorf("failed to look up record %s: %w", record.ID, err)
			}

			if err := svc.collection.AddDocument(ctx, record); err != nil {
				return nil, fmt.Errorf("failed to add record %s: %w", record.ID, err)
			}

			summary.Chunks++
		}

		log.Info("document indexed")
	}

	return summary, nil
}

func (svc *service) Search(ctx context.Context, query string, k ...int) ([]vector.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}

	n := svc.cfg.TopK
	if len(k) > 0 && k[0] > 0 {
		n = k[0]
	}

	if svc.collection.Count() == 0 {
		return nil, ErrNoDocumentsFound
	}

	if timeout := svc.cfg.Timeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	docs, err := svc.collection.Query(ctx, query, n)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, ErrNoDocumentsFound
	}

	return docs, nil
}

func (svc *service) Ask(ctx context.Context, question string) (<-chan llm.Fragment, error) {
	if svc.gen == nil {
		return nil, ErrGeneratorNotSet
	}

	docs, err := svc.Search(ctx, question)
	if err != nil {
		return nil, err
	}

	system, user := BuildPrompt(question, docs)

	timeout := svc.cfg.Timeout.Duration()
	if timeout <= 0 {
		return svc.gen.Stream(ctx, system, user)
	}

	// The timeout bounds the stream handshake. The timer is stopped once
	// the stream is established, so long answers are not cut off
	// mid-generation; the caller's context still cancels the stream.
	genCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(timeout, cancel)

	fragments, err := svc.gen.Stream(genCtx, system, user)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, err
	}

	timer.Stop()

	out := make(chan llm.Fragment)

	go func() {
		defer close(out)
		defer cancel()

		for fragment := range fragments {
			out <- fragment
		}
	}()

	return out, nil
}
