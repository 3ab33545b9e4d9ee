package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGemini(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handle))
	t.Cleanup(srv.Close)

	c, err := NewGeminiClient(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateTrimsText(t *testing.T) {
	var gotPath, gotPrompt string
	c := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
			gotPrompt = body.Contents[0].Parts[0].Text
		}
		_ = json.NewEncoder(w).Encode(textResponse("\n  We ship in 2 days.  \n"))
	})

	out, err := c.Generate(context.Background(), "when do you ship?")
	require.NoError(t, err)
	assert.Equal(t, "We ship in 2 days.", out)
	assert.True(t, strings.HasSuffix(gotPath, "gemini-2.5-flash:generateContent"), gotPath)
	assert.Equal(t, "when do you ship?", gotPrompt)
}

func TestGenerateEmptyText(t *testing.T) {
	c := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(textResponse(""))
	})

	out, err := c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGeneratePropagatesError(t *testing.T) {
	c := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad key","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("  a\n\tb   c "))
	assert.Empty(t, normalizeWhitespace(" \n "))
}

func TestEmbedRejectsEmpty(t *testing.T) {
	c := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.Embed(context.Background(), "   ")
	require.Error(t, err)
}
