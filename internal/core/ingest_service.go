package core

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gwi.com/web-rag-agent/internal/store"
)

// Metadata keys attached to every ingested chunk.
const (
	MetadataSourceURL        = "source_url"
	MetadataChunkIndex       = "chunk_index"
	MetadataOriginalHostname = "original_hostname"
)

type IngestService struct {
	fetcher PageFetcher
	store   DocumentStore
	logger  *zap.Logger
	newID   func() string
}

func NewIngestService(fetcher PageFetcher, documentStore DocumentStore, logger *zap.Logger) *IngestService {
	return &IngestService{
		fetcher: fetcher,
		store:   documentStore,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// ScrapeAndEmbed fetches rawURL, stores each non-empty paragraph under the
// URL's category and returns the generated document IDs in paragraph order.
// Any failure is logged and yields an empty result.
func (s *IngestService) ScrapeAndEmbed(ctx context.Context, rawURL string) []string {
	paragraphs, err := s.fetcher.FetchParagraphs(ctx, rawURL)
	if err != nil {
		s.logger.Error("Failed to fetch page", zap.String("url", rawURL), zap.Error(err))
		return nil
	}

	var texts []string
	for _, p := range paragraphs {
		if text := strings.TrimSpace(p); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		s.logger.Warn("No paragraph text found on page", zap.String("url", rawURL))
		return nil
	}

	category := DeriveCategory(rawURL)
	hostname := ""
	if u, err := url.Parse(rawURL); err == nil {
		hostname = u.Hostname()
	}

	chunks := make([]store.DocumentChunk, len(texts))
	ids := make([]string, len(texts))
	for i, text := range texts {
		ids[i] = s.newID()
		chunks[i] = store.DocumentChunk{
			ID:      ids[i],
			Content: text,
			Metadata: map[string]any{
				MetadataSourceURL:        rawURL,
				MetadataChunkIndex:       i,
				MetadataOriginalHostname: hostname,
			},
		}
	}

	if err := s.store.Upsert(ctx, category, chunks); err != nil {
		s.logger.Error("Failed to store page chunks",
			zap.String("url", rawURL), zap.String("category", category), zap.Error(err))
		return nil
	}

	s.logger.Info("Stored page chunks",
		zap.String("url", rawURL), zap.String("category", category), zap.Int("chunks", len(ids)))
	return ids
}
