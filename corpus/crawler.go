package corpus

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Crawl walks the documentation site starting at baseURL, staying within its
// domain, and returns one Document per page. The page's main content is
// preferred; pages without extractable text still produce an entry with
// empty content so that crawl coverage stays visible.
func Crawl(baseURL string, maxDepth int) ([]Document, error) {
	log := zap.L().With(
		zap.String("component", "crawler"),
		zap.String("base_url", baseURL),
	)

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(base.Host),
		colly.MaxDepth(maxDepth),
	)

	var docs []Document

	c.OnHTML("html", func(e *colly.HTMLElement) {
		content := strings.TrimSpace(e.ChildText("main"))
		if content == "" {
			content = strings.TrimSpace(e.ChildText("body"))
		}

		pageURL := e.Request.URL.String()

		title := strings.TrimSpace(e.ChildText("title"))
		if title == "" {
			title = titleFromURL(e.Request.URL)
		}

		docs = append(docs, Document{
			Title:   title,
			URL:     pageURL,
			Content: content,
		})

		log.Info("crawled page",
			zap.String("url", pageURL),
			zap.Int("content_length", len(content)),
		)
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		e.Request.Visit(e.Attr("href"))
	})

	c.OnError(func(r *colly.Response, err error) {
		log.Warn("failed to retrieve page",
			zap.String("url", r.Request.URL.String()),
			zap.Error(err),
		)
	})

	if err := c.Visit(baseURL); err != nil {
		return nil, err
	}

	return docs, nil
}

func titleFromURL(u *url.URL) string {
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}

	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}
