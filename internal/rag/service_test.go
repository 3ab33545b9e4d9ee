package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(store *fakeStore, model *fakeModel) *Service {
	return NewService(NewRetriever(store, partition, nil), NewAnswerGenerator(model))
}

func TestAnswer(t *testing.T) {
	model := &fakeModel{out: "We have doc1."}
	svc := newService(&fakeStore{result: docs("doc1", "doc2", "doc3")}, model)

	res, err := svc.Answer(context.Background(), Query{Text: "what do you have?", Seller: "x"})
	require.NoError(t, err)

	assert.Equal(t, &Result{
		Query:   "what do you have?",
		Context: "doc1\ndoc2\ndoc3",
		Answer:  "We have doc1.",
	}, res)
	assert.Contains(t, model.prompts[0], "doc1\ndoc2\ndoc3")
}

func TestAnswerNoMatches(t *testing.T) {
	model := &fakeModel{out: "Sorry, that is outside my scope."}
	svc := newService(&fakeStore{result: docs()}, model)

	res, err := svc.Answer(context.Background(), Query{Text: "q", Seller: "x"})
	require.NoError(t, err)
	assert.Equal(t, NoContextFound, res.Context)
	assert.Contains(t, model.prompts[0], NoContextFound)
}

func TestAnswerStoreErrorStillGenerates(t *testing.T) {
	model := &fakeModel{out: "answer"}
	svc := newService(&fakeStore{err: errors.New("timeout")}, model)

	res, err := svc.Answer(context.Background(), Query{Text: "q", Seller: "x"})
	require.NoError(t, err)
	assert.Equal(t, ContextError, res.Context)
	assert.Equal(t, "answer", res.Answer)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], ContextError)
}

func TestAnswerEmptyGeneration(t *testing.T) {
	svc := newService(&fakeStore{result: docs("doc1")}, &fakeModel{out: ""})

	res, err := svc.Answer(context.Background(), Query{Text: "q", Seller: "x"})
	require.NoError(t, err)
	assert.Equal(t, NoAnswer, res.Answer)
}

func TestAnswerModelError(t *testing.T) {
	svc := newService(&fakeStore{result: docs("doc1")}, &fakeModel{err: errors.New("503")})

	res, err := svc.Answer(context.Background(), Query{Text: "q", Seller: "x"})
	require.Error(t, err)
	assert.Nil(t, res)
}
