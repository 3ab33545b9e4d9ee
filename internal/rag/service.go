package rag

import (
	"context"
)

// Service runs the query pipeline: retrieve context, then generate an answer.
type Service struct {
	retriever *Retriever
	generator *AnswerGenerator
}

func NewService(retriever *Retriever, generator *AnswerGenerator) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
	}
}

// Answer never fails on retrieval; only a model error is returned.
func (s *Service) Answer(ctx context.Context, q Query) (*Result, error) {
	contextText := s.retriever.Retrieve(ctx, q.Text, q.Seller)

	answer, err := s.generator.Generate(ctx, q.Text, contextText)
	if err != nil {
		return nil, err
	}

	return &Result{
		Query:   q.Text,
		Context: contextText,
		Answer:  answer,
	}, nil
}
