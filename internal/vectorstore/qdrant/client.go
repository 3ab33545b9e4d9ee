// Package qdrant implements vectorstore.Store on a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/circulx/products-rag/internal/vectorstore"
)

// TextKey is the payload field holding the chunk text.
const TextKey = "document"

type Config struct {
	// URL is the gRPC address, e.g. "https://xyz.cloud.qdrant.io:6334".
	URL        string
	APIKey     string
	Collection string
}

type Client struct {
	client     *qdrant.Client
	collection string
	embedder   vectorstore.Embedder
}

// New dials Qdrant and verifies the collection exists.
func New(ctx context.Context, cfg Config, embedder vectorstore.Embedder) (*Client, error) {
	qc, err := dial(cfg)
	if err != nil {
		return nil, err
	}

	exists, err := qc.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		qc.Close()
		return nil, fmt.Errorf("check collection %q: %w", cfg.Collection, err)
	}
	if !exists {
		qc.Close()
		return nil, fmt.Errorf("collection %q: %w", cfg.Collection, vectorstore.ErrCollectionNotFound)
	}

	return &Client{client: qc, collection: cfg.Collection, embedder: embedder}, nil
}

// NewWriter dials Qdrant and creates the collection (cosine, dim) when missing.
func NewWriter(ctx context.Context, cfg Config, dim uint64, embedder vectorstore.Embedder) (*Client, error) {
	qc, err := dial(cfg)
	if err != nil {
		return nil, err
	}

	exists, err := qc.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		qc.Close()
		return nil, fmt.Errorf("check collection %q: %w", cfg.Collection, err)
	}
	if !exists {
		err = qc.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			qc.Close()
			return nil, fmt.Errorf("create collection %q: %w", cfg.Collection, err)
		}
	}

	return &Client{client: qc, collection: cfg.Collection, embedder: embedder}, nil
}

func dial(cfg Config) (*qdrant.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	host, port, useTLS, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	qc, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return qc, nil
}

func parseURL(raw string) (host string, port int, useTLS bool, err error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to parse qdrant url: %w", err)
	}
	port = 6334
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid port: %w", err)
		}
	}
	return u.Hostname(), port, u.Scheme == "https", nil
}

func (c *Client) Query(ctx context.Context, req vectorstore.QueryRequest) (*vectorstore.QueryResult, error) {
	vec, err := c.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := uint64(req.NResults)
	points, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		Filter:         buildFilter(req.Where),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	ids := make([]string, 0, len(points))
	docs := make([]string, 0, len(points))
	metas := make([]map[string]any, 0, len(points))
	scores := make([]float32, 0, len(points))
	for _, p := range points {
		meta := make(map[string]any, len(p.GetPayload()))
		var text string
		for k, v := range p.GetPayload() {
			if k == TextKey {
				text = v.GetStringValue()
				continue
			}
			meta[k] = v.GetStringValue()
		}
		ids = append(ids, p.GetId().GetUuid())
		docs = append(docs, text)
		metas = append(metas, meta)
		// Qdrant scores are similarities; keep Chroma's "lower is closer".
		scores = append(scores, 1-p.GetScore())
	}

	return &vectorstore.QueryResult{
		IDs:       [][]string{ids},
		Documents: [][]string{docs},
		Metadatas: [][]map[string]any{metas},
		Distances: [][]float32{scores},
	}, nil
}

func buildFilter(where map[string]string) *qdrant.Filter {
	if len(where) == 0 {
		return nil
	}
	conds := make([]*qdrant.Condition, 0, len(where))
	for k, v := range where {
		conds = append(conds, qdrant.NewMatch(k, v))
	}
	return &qdrant.Filter{Must: conds}
}

func (c *Client) Upsert(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, d := range docs {
		vec, err := c.embedder.Embed(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("embed %s: %w", d.ID, err)
		}
		payload := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			payload[k] = v
		}
		payload[TextKey] = d.Text

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(d.ID)),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// PointID maps an arbitrary document ID to the UUID Qdrant requires. The
// mapping is stable so re-imports overwrite the same points.
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String()
}

func (c *Client) Close() error {
	return c.client.Close()
}

var _ vectorstore.Store = (*Client)(nil)
