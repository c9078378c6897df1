package carbonchat

import (
	"context"

	"go.uber.org/zap"

	"github.com/ashton-krac/carbonchat/corpus"
	"github.com/ashton-krac/carbonchat/llm"
	"github.com/ashton-krac/carbonchat/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "carbonchat"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) IndexCorpus(ctx context.Context, docs []corpus.Document) (*IndexSummary, error) {
	log := mw.log.With(
		zap.String("action", "index_corpus"),
		zap.Int("documents", len(docs)),
	)

	summary, err := mw.next.IndexCorpus(ctx, docs)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("corpus indexed",
		zap.Int("indexed", summary.Documents),
		zap.Int("chunks", summary.Chunks),
		zap.Int("skipped", summary.Skipped),
	)

	return summary, nil
}

func (mw *loggingMiddleware) Search(ctx context.Context, query string, k ...int) ([]vector.Document, error) {
	var n int
	if len(k) > 0 {
		n = k[0]
	}

	log := mw.log.With(
		zap.String("action", "search"),
		zap.String("query", query),
	)

	if n > 0 {
		log = log.With(
			zap.Int("k", n),
		)
	}

	docs, err := mw.next.Search(ctx, query, k...)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents retrieved", zap.Int("count", len(docs)))
	return docs, nil
}

func (mw *loggingMiddleware) Ask(ctx context.Context, question string) (<-chan llm.Fragment, error) {
	log := mw.log.With(
		zap.String("action", "ask"),
		zap.String("question", question),
	)

	fragments, err := mw.next.Ask(ctx, question)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("answer streaming started")

	out := make(chan llm.Fragment)

	go func() {
		defer close(out)

		count := 0
		for fragment := range fragments {
			if fragment.Err != nil {
				log.Error(fragment.Err.Error(), zap.Int("fragments", count))
			}

			count++
			out <- fragment
		}

		log.Info("answer streaming finished", zap.Int("fragments", count))
	}()

	return out, nil
}
