package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/ashton-krac/carbonchat"
)

func AddEndpoints(group micro.Group, endpoints carbonchat.EndpointSet) {
	group.AddEndpoint("index_corpus", IndexCorpusHandler(endpoints.IndexCorpus))
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("ask", AskHandler(endpoints.Ask))
}
