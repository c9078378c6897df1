package carbonchat

import (
	"context"
	"errors"

	"github.com/ashton-krac/carbonchat/corpus"
	"github.com/ashton-krac/carbonchat/llm"
	"github.com/ashton-krac/carbonchat/vector"
)

// ProxyMiddleware implements Service over a remote endpoint set, so thin
// clients (e.g. the MCP server command) can attach to a running service.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) IndexCorpus(ctx context.Context, docs []corpus.Document) (*IndexSummary, error) {
	req := IndexCorpusRequest{
		Documents: docs,
	}

	resp, err := mw.endpoints.IndexCorpus(ctx, req)
	if err != nil {
		return nil, err
	}

	summary, ok := resp.(*IndexSummary)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return summary, nil
}

func (mw *proxyMiddleware) Search(ctx context.Context, query string, k ...int) ([]vector.Document, error) {
	n := 0
	if len(k) > 0 {
		n = k[0]
	}

	req := SearchRequest{
		Query: query,
		K:     n,
	}

	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	docs, ok := resp.([]vector.Document)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return docs, nil
}

// Ask collapses the remote answer into a short stream: one fragment with the
// answer text, followed by an error fragment when generation was interrupted.
func (mw *proxyMiddleware) Ask(ctx context.Context, question string) (<-chan llm.Fragment, error) {
	req := AskRequest{
		Question: question,
	}

	resp, err := mw.endpoints.Ask(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, ok := resp.(AskResponse)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	out := make(chan llm.Fragment, 2)

	if answer.Answer != "" {
		out <- llm.Fragment{Text: answer.Answer}
	}

	if answer.Error != "" {
		out <- llm.Fragment{Err: errors.New(answer.Error)}
	}

	close(out)

	return out, nil
}
