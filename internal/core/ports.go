package core

import (
	"context"

	"gwi.com/web-rag-agent/internal/store"
)

// Completer produces the model's reply to an ordered conversation.
type Completer interface {
	Complete(ctx context.Context, messages []store.Message) (string, error)
}

// PageFetcher returns the paragraph texts of a web page in document order.
type PageFetcher interface {
	FetchParagraphs(ctx context.Context, url string) ([]string, error)
}

// Ingester stores a web page and returns the IDs of the stored chunks.
type Ingester interface {
	ScrapeAndEmbed(ctx context.Context, url string) []string
}

// Querier searches one category of the semantic store.
type Querier interface {
	Query(ctx context.Context, query, category string) QueryResult
}

// DocumentStore is the semantic store holding one collection per category.
type DocumentStore interface {
	Upsert(ctx context.Context, collection string, chunks []store.DocumentChunk) error
	Query(ctx context.Context, collection, text string, k int) ([]store.ScoredDocument, error)
}
