package rag

import (
	"context"
	"fmt"
	"strings"
	"text/template"
)

var promptTmpl = template.Must(template.New("prompt").Parse(`
You are a helpful chatbot for an ecommerce platform.
Based on the following information, answer the question clearly.
Be polite and articulate.
If the context shows that no relevant information was found, tell the user politely that this lies outside your scope of information.

Context:
{{.Context}}

Question:
{{.Query}}

Answer clearly and concisely.
`))

// BuildPrompt renders the fixed answer prompt.
func BuildPrompt(query, contextText string) string {
	var b strings.Builder
	// Execute only fails on writer errors; strings.Builder never returns one.
	_ = promptTmpl.Execute(&b, struct{ Query, Context string }{query, contextText})
	return b.String()
}

// AnswerGenerator asks the model to answer a query from retrieved context.
type AnswerGenerator struct {
	model Model
}

func NewAnswerGenerator(model Model) *AnswerGenerator {
	return &AnswerGenerator{model: model}
}

// Generate returns the trimmed model answer, or NoAnswer when the model
// returned no text. Model errors are returned to the caller.
func (g *AnswerGenerator) Generate(ctx context.Context, query, contextText string) (string, error) {
	out, err := g.model.Generate(ctx, BuildPrompt(query, contextText))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return NoAnswer, nil
	}
	return out, nil
}
