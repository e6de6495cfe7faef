package core

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	NumQueryResults = 5

	emptyQueryError = "Query text cannot be empty"
)

// QueryResult holds ranked snippets, closest first. Error is set instead of
// returning a Go error so callers can show it to the model as text.
type QueryResult struct {
	Documents []string
	Error     string
}

type QueryService struct {
	store  DocumentStore
	logger *zap.Logger
}

func NewQueryService(documentStore DocumentStore, logger *zap.Logger) *QueryService {
	return &QueryService{store: documentStore, logger: logger}
}

// Query searches category for the NumQueryResults snippets closest to query.
// It never fails: an empty query or a store error is reported in Error.
func (s *QueryService) Query(ctx context.Context, query, category string) QueryResult {
	if strings.TrimSpace(query) == "" {
		return QueryResult{Error: emptyQueryError}
	}

	docs, err := s.store.Query(ctx, category, query, NumQueryResults)
	if err != nil {
		s.logger.Warn("Vector store query failed",
			zap.String("category", category), zap.String("query", query), zap.Error(err))
		return QueryResult{Error: err.Error()}
	}

	result := QueryResult{Documents: make([]string, 0, len(docs))}
	for _, d := range docs {
		result.Documents = append(result.Documents, d.Content)
	}
	s.logger.Debug("Vector store query",
		zap.String("category", category), zap.Int("documents", len(result.Documents)))
	return result
}
