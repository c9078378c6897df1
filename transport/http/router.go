package http

import (
	"github.com/gin-gonic/gin"

	"github.com/ashton-krac/carbonchat"
)

func AddRouters(r *gin.Engine, endpoints carbonchat.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/corpus", IndexCorpusHandler(endpoints.IndexCorpus))
		api.GET("/docs/search", SearchHandler(endpoints.Search))
		api.POST("/ask", AskHandler(endpoints.Ask))
	}
}
