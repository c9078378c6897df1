package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"

	"github.com/ashton-krac/carbonchat"
	"github.com/ashton-krac/carbonchat/vector"
)

// askTimeout allows for retrieval plus a full generation round-trip, which
// can run well past the default request timeout.
const askTimeout = 2 * time.Minute

func MakeEndpoints(nc *nats.Conn, prefix string) *carbonchat.EndpointSet {
	return &carbonchat.EndpointSet{
		IndexCorpus: IndexCorpusEndpoint(nc, prefix+".index_corpus"),
		Search:      SearchEndpoint(nc, prefix+".search"),
		Ask:         AskEndpoint(nc, prefix+".ask"),
	}
}

func IndexCorpusEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(carbonchat.IndexCorpusRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, askTimeout)
		if err != nil {
			return nil, err
		}

		var summary carbonchat.IndexSummary
		if err := json.Unmarshal(resp.Data, &summary); err != nil {
			return nil, err
		}

		return &summary, nil
	}
}

func SearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(carbonchat.SearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		var docs []vector.Document
		if err := json.Unmarshal(resp.Data, &docs); err != nil {
			return nil, err
		}

		return docs, nil
	}
}

func AskEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(carbonchat.AskRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, askTimeout)
		if err != nil {
			return nil, err
		}

		var answer carbonchat.AskResponse
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return nil, err
		}

		return answer, nil
	}
}
