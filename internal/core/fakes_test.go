package core

import (
	"context"
	"errors"
	"fmt"

	"gwi.com/web-rag-agent/internal/store"
)

type upsertCall struct {
	collection string
	chunks     []store.DocumentChunk
}

type queryCall struct {
	collection string
	text       string
	k          int
}

// fakeStore records calls and keeps upserted chunks per collection.
type fakeStore struct {
	upserts     []upsertCall
	queries     []queryCall
	collections map[string][]store.DocumentChunk
	upsertErr   error
	queryErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: map[string][]store.DocumentChunk{}}
}

func (f *fakeStore) Upsert(_ context.Context, collection string, chunks []store.DocumentChunk) error {
	f.upserts = append(f.upserts, upsertCall{collection: collection, chunks: chunks})
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.collections[collection] = append(f.collections[collection], chunks...)
	return nil
}

func (f *fakeStore) Query(_ context.Context, collection, text string, k int) ([]store.ScoredDocument, error) {
	f.queries = append(f.queries, queryCall{collection: collection, text: text, k: k})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	chunks, ok := f.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collection, store.ErrCollectionNotFound)
	}
	var docs []store.ScoredDocument
	for i, c := range chunks {
		if i == k {
			break
		}
		docs = append(docs, store.ScoredDocument{ID: c.ID, Content: c.Content, Distance: float32(i) / 10})
	}
	return docs, nil
}

type fakeFetcher struct {
	paragraphs []string
	err        error
	calls      []string
}

func (f *fakeFetcher) FetchParagraphs(_ context.Context, url string) ([]string, error) {
	f.calls = append(f.calls, url)
	return f.paragraphs, f.err
}

// scriptedCompleter returns its replies in order and records every request.
type scriptedCompleter struct {
	replies  []string
	errs     []error
	requests [][]store.Message
}

func (c *scriptedCompleter) Complete(_ context.Context, messages []store.Message) (string, error) {
	n := len(c.requests)
	c.requests = append(c.requests, append([]store.Message(nil), messages...))
	if n < len(c.errs) && c.errs[n] != nil {
		return "", c.errs[n]
	}
	if n >= len(c.replies) {
		return "", errors.New("scriptedCompleter: no reply left")
	}
	return c.replies[n], nil
}
