package carbonchat

import (
	"context"
	"errors"
	"strings"

	"github.com/go-kit/kit/endpoint"

	"github.com/ashton-krac/carbonchat/corpus"
)

type EndpointSet struct {
	IndexCorpus endpoint.Endpoint
	Search      endpoint.Endpoint
	Ask         endpoint.Endpoint
}

type IndexCorpusRequest struct {
	Documents []corpus.Document `json:"documents"`
}

func IndexCorpusEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IndexCorpusRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.IndexCorpus(ctx, req.Documents)
	}
}

type SearchRequest struct {
	Query string `json:"query" form:"query"`
	K     int    `json:"k,omitempty" form:"k"`
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Search(ctx, req.Query, req.K)
	}
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}

// AskEndpoint drains the fragment stream into a single response. Partial
// output produced before a mid-stream failure is kept, with the error
// reported alongside it.
func AskEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AskRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		fragments, err := svc.Ask(ctx, req.Question)
		if err != nil {
			return nil, err
		}

		var (
			b         strings.Builder
			streamErr error
		)

		for fragment := range fragments {
			if fragment.Err != nil {
				streamErr = fragment.Err
				break
			}

			b.WriteString(fragment.Text)
		}

		resp := AskResponse{
			Answer: b.String(),
		}

		if streamErr != nil {
			if resp.Answer == "" {
				return nil, streamErr
			}

			resp.Error = streamErr.Error()
		}

		return resp, nil
	}
}
