package rag

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/circulx/products-rag/internal/vectorstore"
)

// Retriever looks up product documents for a query within one seller partition.
type Retriever struct {
	store     vectorstore.Store
	partition string
	nResults  int
	cache     ContextCache
	log       *zap.Logger
}

type RetrieverOption func(*Retriever)

// WithCache enables the context cache.
func WithCache(c ContextCache) RetrieverOption {
	return func(r *Retriever) { r.cache = c }
}

func WithNResults(n int) RetrieverOption {
	return func(r *Retriever) {
		if n > 0 {
			r.nResults = n
		}
	}
}

// NewRetriever returns a retriever scoped to partition.
func NewRetriever(store vectorstore.Store, partition string, log *zap.Logger, opts ...RetrieverOption) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Retriever{
		store:     store,
		partition: partition,
		nResults:  DefaultNResults,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the ranked documents joined by newlines, NoContextFound
// when nothing matched, or ContextError when the store call failed. It never
// returns an error and never returns "".
//
// The seller argument is accepted for the caller's benefit but not used: every
// lookup is scoped to the retriever's fixed partition.
//
// A blank query has nothing to embed, so it yields NoContextFound without a
// store call.
func (r *Retriever) Retrieve(ctx context.Context, query, seller string) string {
	if strings.TrimSpace(query) == "" {
		r.log.Debug("blank query, skipping retrieval", zap.String("partition", r.partition))
		return NoContextFound
	}

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, r.partition, query)
		if err != nil {
			r.log.Warn("context cache get failed", zap.Error(err))
		} else if ok {
			return cached
		}
	}

	res, err := r.store.Query(ctx, vectorstore.QueryRequest{
		Text:     query,
		Where:    map[string]string{vectorstore.SellerKey: r.partition},
		NResults: r.nResults,
	})
	if err != nil {
		r.log.Error("context retrieval failed",
			zap.String("partition", r.partition),
			zap.String("requested_seller", seller),
			zap.Error(err),
		)
		return ContextError
	}

	out := strings.Join(res.FirstDocuments(), "\n")
	if out == "" {
		out = NoContextFound
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, r.partition, query, out); err != nil {
			r.log.Warn("context cache set failed", zap.Error(err))
		}
	}
	return out
}
