package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultChatModel      = "gemini-2.5-flash"
	DefaultEmbeddingModel = "text-embedding-004"
	EmbedDim              = 768
)

var ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

type Config struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	// BaseURL overrides the Gemini API endpoint; empty uses the SDK default.
	BaseURL string
}

type GeminiClient struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
}

func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		client:         c,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
	}, nil
}

// Generate sends prompt as the only content, with provider default sampling,
// and returns the response text trimmed of surrounding whitespace. An empty
// string means the model produced no text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generateContent error: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, fmt.Errorf("empty text for embedding")
	}

	resp, err := g.client.Models.EmbedContent(
		ctx,
		g.embeddingModel,
		genai.Text(clean),
		&genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(int32(EmbedDim)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	values := resp.Embeddings[0].Values
	if len(values) != EmbedDim {
		return nil, fmt.Errorf("unexpected embedding size %d (expected %d)", len(values), EmbedDim)
	}

	out := make([]float32, EmbedDim)
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
