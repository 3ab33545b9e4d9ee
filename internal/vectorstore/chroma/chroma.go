// Package chroma is a minimal client for the Chroma v2 REST API, scoped to a
// single collection of a tenant/database.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/circulx/products-rag/internal/vectorstore"
)

const tokenHeader = "x-chroma-token"

type Config struct {
	URL        string
	APIKey     string
	Tenant     string
	Database   string
	Collection string
	// Dimension is the length of the vectors the embedder produces. When set,
	// collections holding vectors of another length are rejected.
	Dimension int
	// Timeout bounds each request. Zero leaves the http.Client default.
	Timeout time.Duration
}

// compatibleFunctions are the Chroma embedding function names that embed with
// the Gemini embedding models. A collection created by the Python client's
// default function (all-MiniLM-L6-v2) is not among them.
var compatibleFunctions = map[string]bool{
	"google_generative_ai": true,
	"google_genai":         true,
}

// Collection implements vectorstore.Store against one Chroma collection.
type Collection struct {
	base     string
	apiKey   string
	id       string
	name     string
	embedder vectorstore.Embedder
	client   *http.Client
}

// Connect resolves the configured collection by name and returns a handle to it.
func Connect(ctx context.Context, cfg Config, embedder vectorstore.Embedder) (*Collection, error) {
	if err := validate(cfg, embedder); err != nil {
		return nil, err
	}
	c := newCollection(cfg, embedder)

	var coll collectionResponse
	err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(cfg.Collection), nil, &coll)
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", cfg.Collection, err)
	}
	if coll.ID == "" {
		return nil, fmt.Errorf("get collection %q: %w", cfg.Collection, vectorstore.ErrCollectionNotFound)
	}
	if err := coll.checkEmbedding(cfg.Dimension); err != nil {
		return nil, fmt.Errorf("collection %q: %w", cfg.Collection, err)
	}
	c.id = coll.ID

	return c, nil
}

// GetOrCreate is Connect for writers: the collection is created when missing.
func GetOrCreate(ctx context.Context, cfg Config, embedder vectorstore.Embedder) (*Collection, error) {
	if err := validate(cfg, embedder); err != nil {
		return nil, err
	}
	c := newCollection(cfg, embedder)

	var coll collectionResponse
	body := map[string]any{"name": cfg.Collection, "get_or_create": true}
	if err := c.do(ctx, http.MethodPost, "/collections", body, &coll); err != nil {
		return nil, fmt.Errorf("get or create collection %q: %w", cfg.Collection, err)
	}
	if err := coll.checkEmbedding(cfg.Dimension); err != nil {
		return nil, fmt.Errorf("collection %q: %w", cfg.Collection, err)
	}
	c.id = coll.ID

	return c, nil
}

type collectionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Dimension is null until the first vector is written.
	Dimension     *int `json:"dimension"`
	Configuration struct {
		EmbeddingFunction *struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"embedding_function"`
	} `json:"configuration_json"`
}

// checkEmbedding rejects collections indexed in another embedding space. A
// "known" function must be one of compatibleFunctions; legacy or absent
// functions are judged by the stored dimension alone.
func (r collectionResponse) checkEmbedding(dim int) error {
	if ef := r.Configuration.EmbeddingFunction; ef != nil && ef.Type == "known" && !compatibleFunctions[ef.Name] {
		return fmt.Errorf("%w: embedding function %q", vectorstore.ErrIncompatibleEmbedding, ef.Name)
	}
	if dim > 0 && r.Dimension != nil && *r.Dimension != dim {
		return fmt.Errorf("%w: dimension %d, want %d", vectorstore.ErrIncompatibleEmbedding, *r.Dimension, dim)
	}
	return nil
}

func validate(cfg Config, embedder vectorstore.Embedder) error {
	if cfg.URL == "" || cfg.Tenant == "" || cfg.Database == "" || cfg.Collection == "" {
		return errors.New("chroma url, tenant, database and collection are required")
	}
	if embedder == nil {
		return errors.New("chroma: embedder is required")
	}
	return nil
}

func newCollection(cfg Config, embedder vectorstore.Embedder) *Collection {
	return &Collection{
		base: fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s",
			strings.TrimRight(cfg.URL, "/"),
			url.PathEscape(cfg.Tenant),
			url.PathEscape(cfg.Database),
		),
		apiKey:   cfg.APIKey,
		name:     cfg.Collection,
		embedder: embedder,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

type queryBody struct {
	QueryEmbeddings [][]float32       `json:"query_embeddings"`
	NResults        int               `json:"n_results"`
	Where           map[string]string `json:"where,omitempty"`
	Include         []string          `json:"include"`
}

type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]*string        `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]*float32       `json:"distances"`
}

func (c *Collection) Query(ctx context.Context, req vectorstore.QueryRequest) (*vectorstore.QueryResult, error) {
	vec, err := c.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body := queryBody{
		QueryEmbeddings: [][]float32{vec},
		NResults:        req.NResults,
		Where:           req.Where,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.id+"/query", body, &resp); err != nil {
		return nil, fmt.Errorf("chroma query: %w", err)
	}

	out := &vectorstore.QueryResult{
		IDs:       resp.IDs,
		Metadatas: resp.Metadatas,
	}
	if resp.Documents != nil {
		out.Documents = make([][]string, len(resp.Documents))
		for i, docs := range resp.Documents {
			out.Documents[i] = make([]string, 0, len(docs))
			for _, d := range docs {
				if d != nil {
					out.Documents[i] = append(out.Documents[i], *d)
				}
			}
		}
	}
	if resp.Distances != nil {
		out.Distances = make([][]float32, len(resp.Distances))
		for i, ds := range resp.Distances {
			out.Distances[i] = make([]float32, len(ds))
			for j, d := range ds {
				if d != nil {
					out.Distances[i][j] = *d
				}
			}
		}
	}
	return out, nil
}

type upsertBody struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
}

func (c *Collection) Upsert(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	body := upsertBody{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Documents:  make([]string, len(docs)),
		Metadatas:  make([]map[string]string, len(docs)),
	}
	for i, d := range docs {
		vec, err := c.embedder.Embed(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("embed %s: %w", d.ID, err)
		}
		body.IDs[i] = d.ID
		body.Embeddings[i] = vec
		body.Documents[i] = d.Text
		body.Metadatas[i] = d.Metadata
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.id+"/upsert", body, nil); err != nil {
		return fmt.Errorf("chroma upsert: %w", err)
	}
	return nil
}

func (c *Collection) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Collection) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(tokenHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return vectorstore.ErrCollectionNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ vectorstore.Store = (*Collection)(nil)
