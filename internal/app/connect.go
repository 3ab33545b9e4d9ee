package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/circulx/products-rag/internal/cache"
	"github.com/circulx/products-rag/internal/config"
	"github.com/circulx/products-rag/internal/db"
	"github.com/circulx/products-rag/internal/llm"
	"github.com/circulx/products-rag/internal/rag"
	"github.com/circulx/products-rag/internal/vectorstore"
	"github.com/circulx/products-rag/internal/vectorstore/chroma"
	"github.com/circulx/products-rag/internal/vectorstore/pgvector"
	"github.com/circulx/products-rag/internal/vectorstore/qdrant"
)

// NewConnector returns the production Connector for cfg.
func NewConnector(cfg *config.Config, log *zap.Logger) Connector {
	return func(ctx context.Context) (*Handles, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		// The store embeds only on Query and Upsert, which cannot run before
		// gemini is assigned below and the handles are published.
		var gemini *llm.GeminiClient
		embed := vectorstore.EmbedFunc(func(ctx context.Context, text string) ([]float32, error) {
			return gemini.Embed(ctx, text)
		})

		log.Info("connecting to vector store",
			zap.String("backend", cfg.VectorBackend),
			zap.String("collection", cfg.Collection),
		)
		store, err := OpenStore(ctx, cfg, embed)
		if err != nil {
			return nil, err
		}

		log.Info("connecting to gemini", zap.String("model", cfg.GeminiModel))
		gemini, err = llm.NewGeminiClient(ctx, llm.Config{
			APIKey:         cfg.GeminiAPIKey,
			ChatModel:      cfg.GeminiModel,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}

		h := &Handles{
			Store:   store,
			Model:   gemini,
			Closers: []func() error{store.Close},
		}

		var opts []rag.RetrieverOption
		if cfg.CacheEnabled() {
			c, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
			if err != nil {
				_ = store.Close()
				return nil, err
			}
			log.Info("context cache enabled", zap.Duration("ttl", cfg.CacheTTL))
			opts = append(opts, rag.WithCache(c))
			h.Closers = append(h.Closers, c.Close)
		}

		retriever := rag.NewRetriever(store, cfg.SellerPartition, log.Named("retriever"), opts...)
		h.Service = rag.NewService(retriever, rag.NewAnswerGenerator(gemini))
		return h, nil
	}
}

// OpenStore connects to the configured backend and resolves the collection.
func OpenStore(ctx context.Context, cfg *config.Config, embedder vectorstore.Embedder) (vectorstore.Store, error) {
	switch cfg.VectorBackend {
	case config.BackendChroma:
		return chroma.Connect(ctx, chroma.Config{
			URL:        cfg.ChromaURL,
			APIKey:     cfg.ChromaAPIKey,
			Tenant:     cfg.ChromaTenant,
			Database:   cfg.ChromaDB,
			Collection: cfg.Collection,
			Dimension:  llm.EmbedDim,
		}, embedder)
	case config.BackendPgvector:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo, err := pgvector.NewPgRepository(ctx, pool, cfg.Collection, embedder)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return repo, nil
	case config.BackendQdrant:
		return qdrant.New(ctx, qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.Collection,
		}, embedder)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrMissingBackend, cfg.VectorBackend)
	}
}

// OpenWriter opens the configured backend for the importer, creating the
// collection where the backend supports it.
func OpenWriter(ctx context.Context, cfg *config.Config, embedder vectorstore.Embedder) (vectorstore.Store, error) {
	switch cfg.VectorBackend {
	case config.BackendChroma:
		return chroma.GetOrCreate(ctx, chroma.Config{
			URL:        cfg.ChromaURL,
			APIKey:     cfg.ChromaAPIKey,
			Tenant:     cfg.ChromaTenant,
			Database:   cfg.ChromaDB,
			Collection: cfg.Collection,
			Dimension:  llm.EmbedDim,
		}, embedder)
	case config.BackendPgvector:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo, err := pgvector.NewWriter(ctx, pool, cfg.Collection, embedder)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return repo, nil
	case config.BackendQdrant:
		return qdrant.NewWriter(ctx, qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.Collection,
		}, llm.EmbedDim, embedder)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrMissingBackend, cfg.VectorBackend)
	}
}
