package rag

import (
	"context"
	"sync"

	"github.com/circulx/products-rag/internal/vectorstore"
)

type fakeStore struct {
	mu     sync.Mutex
	result *vectorstore.QueryResult
	err    error
	calls  []vectorstore.QueryRequest
}

func (f *fakeStore) Query(_ context.Context, req vectorstore.QueryRequest) (*vectorstore.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.result, f.err
}

func (f *fakeStore) Upsert(context.Context, []vectorstore.Document) error { return nil }
func (f *fakeStore) Close() error                                         { return nil }

func docs(d ...string) *vectorstore.QueryResult {
	return &vectorstore.QueryResult{Documents: [][]string{d}}
}

type fakeModel struct {
	out     string
	err     error
	prompts []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}

type memCache struct {
	data   map[string]string
	getErr error
	sets   int
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (m *memCache) Get(_ context.Context, partition, query string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[partition+"|"+query]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, partition, query, contextText string) error {
	m.sets++
	m.data[partition+"|"+query] = contextText
	return nil
}
