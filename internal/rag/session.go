package rag

import (
	"context"
	"errors"
	"fmt"

	"docqa/internal/models"
	"docqa/internal/session"
)

// Ask answers question against idx and records the exchange in sess. A
// generation fallback is recorded too so the history matches what was shown.
func (r *RAG) Ask(ctx context.Context, sess *session.Session, idx Retriever, question string) (models.Answer, error) {
	answer, err := r.Answer(ctx, idx, question, sess.Role, sess.Language)
	if err != nil && !errors.Is(err, models.ErrGeneration) {
		return answer, err
	}
	sess.Append(models.ConversationEntry{
		Question: question,
		Answer:   answer.Text,
		Sources:  answer.Sources,
	})
	return answer, err
}

// RefineLast rewrites the last answer of sess and stores the result on it.
func (r *RAG) RefineLast(ctx context.Context, sess *session.Session, kind RefineKind) (string, error) {
	last, ok := sess.Last()
	if !ok {
		return "", fmt.Errorf("%w: no answer to refine", models.ErrInvalidArgument)
	}
	text, err := r.Refine(ctx, last.Question, last.Answer, kind, sess.Role, sess.Language)
	if err != nil {
		return text, err
	}
	return text, sess.SetRefined(text)
}

// Prepare fills the suggested questions and keywords of a new batch.
func (r *RAG) Prepare(ctx context.Context, sess *session.Session) error {
	questions, qErr := r.SuggestQuestions(ctx, sess.Chunks, sess.Role, sess.Language, r.numQuestions)
	keywords, kErr := r.ExtractKeywords(ctx, sess.Chunks, sess.Role, sess.Language, r.numKeywords)
	sess.SuggestedQuestions = questions
	sess.Keywords = keywords
	return errors.Join(qErr, kErr)
}
