// Package corpus loads and prepares the Carbon Design System documentation
// collection: a JSON array of {title, url, content} entries.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
)

type Document struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Load reads the corpus file at path and validates every entry. Unknown
// fields are ignored. Entries without a title or URL are rejected; empty
// content is allowed here and skipped later during indexing.
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}

	for i, doc := range docs {
		if doc.Title == "" {
			return nil, fmt.Errorf("corpus entry %d: missing title", i)
		}

		if doc.URL == "" {
			return nil, fmt.Errorf("corpus entry %d: missing url", i)
		}
	}

	return docs, nil
}

// Save writes docs to path as indented JSON.
func Save(path string, docs []Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

type Stats struct {
	Documents            int     `json:"documents"`
	TotalContentLength   int     `json:"total_content_length"`
	AverageContentLength float64 `json:"average_content_length"`
	UniqueURLs           int     `json:"unique_urls"`
}

func GetStats(docs []Document) Stats {
	stats := Stats{
		Documents: len(docs),
	}

	urls := make(map[string]struct{})
	for _, doc := range docs {
		stats.TotalContentLength += len(doc.Content)
		urls[doc.URL] = struct{}{}
	}

	stats.UniqueURLs = len(urls)

	if len(docs) > 0 {
		stats.AverageContentLength = float64(stats.TotalContentLength) / float64(len(docs))
	}

	return stats
}
