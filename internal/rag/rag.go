package rag

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"docqa/internal/config"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/prompts"
)

// Retriever returns the chunks most relevant to a question.
type Retriever interface {
	Query(ctx context.Context, question string, k int) ([]models.Chunk, error)
}

// RefineKind selects how an answer is rewritten.
type RefineKind string

const (
	Elaborate RefineKind = "elaborate"
	Simplify  RefineKind = "simplify"
)

// RAG runs the generation tasks. Every task returns a value that is safe to
// show even when err is non-nil; model failures wrap models.ErrGeneration.
type RAG struct {
	gen          llmservice.Generator
	budgets      config.BudgetConfig
	topK         int
	numQuestions int
	numKeywords  int
}

func NewRAG(gen llmservice.Generator, cfg *config.Config) *RAG {
	return &RAG{
		gen:          gen,
		budgets:      cfg.Budgets,
		topK:         cfg.RAG.TopK,
		numQuestions: cfg.Session.NumQuestions,
		numKeywords:  cfg.Session.NumKeywords,
	}
}

// Answer retrieves context for question from idx and answers it. A missing
// index is reported as models.ErrIndexNotFound rather than answered.
func (r *RAG) Answer(ctx context.Context, idx Retriever, question, role string, lang prompts.Language) (models.Answer, error) {
	if idx == nil {
		return models.Answer{}, models.ErrIndexNotFound
	}
	chunks, err := idx.Query(ctx, question, r.topK)
	if err != nil {
		return models.Answer{}, err
	}

	var context strings.Builder
	for _, c := range chunks {
		context.WriteString(c.Text + "\n\n")
	}

	text, err := r.generate(ctx, prompts.TaskAnswer, role, lang, prompts.Input{
		Context:  context.String(),
		Question: question,
	})
	if err != nil {
		return models.Answer{Text: models.AnswerErrorMsg, Sources: chunks}, err
	}
	return models.Answer{Text: text, Sources: chunks}, nil
}

// Refine rewrites a previous answer.
func (r *RAG) Refine(ctx context.Context, question, answer string, kind RefineKind, role string, lang prompts.Language) (string, error) {
	var task prompts.Task
	switch kind {
	case Elaborate:
		task = prompts.TaskElaborate
	case Simplify:
		task = prompts.TaskSimplify
	default:
		return models.InvalidRefinementMsg, fmt.Errorf("%w: refinement type %q", models.ErrInvalidArgument, kind)
	}

	text, err := r.generate(ctx, task, role, lang, prompts.Input{Question: question, Answer: answer})
	if err != nil {
		return models.RefineErrorMsg, err
	}
	return text, nil
}

// SuggestQuestions proposes up to n questions about the chunks. Without
// content a generic context is used instead.
func (r *RAG) SuggestQuestions(ctx context.Context, chunks []models.Chunk, role string, lang prompts.Language, n int) ([]string, error) {
	if n <= 0 {
		n = r.numQuestions
	}
	content, ok := concatenate(chunks, r.budgets.Suggestions)
	if !ok {
		content = models.GenericQuestionContext
	}

	text, err := r.generate(ctx, prompts.TaskSuggestQuestions, role, lang, prompts.Input{Context: content, Count: n})
	if err != nil {
		return []string{}, err
	}
	return firstN(splitLines(text), n), nil
}

func (r *RAG) Summarize(ctx context.Context, chunks []models.Chunk, role string, lang prompts.Language) (string, error) {
	content, ok := concatenate(chunks, r.budgets.Summary)
	if !ok {
		return models.NoSummaryContentMsg, models.ErrNoContent
	}
	text, err := r.generate(ctx, prompts.TaskSummarize, role, lang, prompts.Input{Context: content})
	if err != nil {
		return models.SummaryErrorMsg, err
	}
	return text, nil
}

// ExtractKeywords returns up to n keywords found in the chunks.
func (r *RAG) ExtractKeywords(ctx context.Context, chunks []models.Chunk, role string, lang prompts.Language, n int) ([]string, error) {
	if n <= 0 {
		n = r.numKeywords
	}
	content, ok := concatenate(chunks, r.budgets.Keywords)
	if !ok {
		return []string{}, models.ErrNoContent
	}
	text, err := r.generate(ctx, prompts.TaskKeywords, role, lang, prompts.Input{Context: content, Count: n})
	if err != nil {
		return []string{}, err
	}
	return firstN(splitList(text), n), nil
}

// ConceptMap returns a fenced mermaid diagram of the main concepts.
func (r *RAG) ConceptMap(ctx context.Context, chunks []models.Chunk, role string, lang prompts.Language) (string, error) {
	content, ok := concatenate(chunks, r.budgets.ConceptMap)
	if !ok {
		return models.NoConceptMapContentMsg, models.ErrNoContent
	}
	text, err := r.generate(ctx, prompts.TaskConceptMap, role, lang, prompts.Input{Context: content})
	if err != nil {
		return models.ConceptMapErrorMsg, err
	}
	diagram, found := extractMermaid(text)
	if !found {
		log.Warn().Str("response", text).Msg("Concept map is not a mermaid block")
		return models.ConceptMapFormatMsg, fmt.Errorf("%w: no mermaid block in response", models.ErrGeneration)
	}
	return diagram, nil
}

// Timeline lists dated events in chronological order, or the no-timeline reply.
func (r *RAG) Timeline(ctx context.Context, chunks []models.Chunk, role string, lang prompts.Language) (string, error) {
	content, ok := concatenate(chunks, r.budgets.Timeline)
	if !ok {
		return models.NoTimelineContentMsg, models.ErrNoContent
	}
	text, err := r.generate(ctx, prompts.TaskTimeline, role, lang, prompts.Input{Context: content})
	if err != nil {
		return models.TimelineErrorMsg, err
	}
	return text, nil
}

func (r *RAG) generate(ctx context.Context, task prompts.Task, role string, lang prompts.Language, in prompts.Input) (string, error) {
	prompt, err := prompts.Compose(task, role, lang, in)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("task", string(task)).Msg("Generation failed, using fallback")
		return "", fmt.Errorf("%w: %s: %w", models.ErrGeneration, task, err)
	}
	log.Debug().Str("task", string(task)).Dur("took", time.Since(start)).Msg("Task generated")
	return text, nil
}

// concatenate joins chunks with blank lines while the running length stays
// under budget. The first chunk that does not fit ends the loop and the
// truncation marker is appended. ok is false when no chunk text was taken.
func concatenate(chunks []models.Chunk, budget int) (content string, ok bool) {
	var b strings.Builder
	size := 0
	for _, c := range chunks {
		n := utf8.RuneCountInString(c.Text)
		if size+n >= budget {
			b.WriteString("\n\n" + models.TruncatedMarker)
			break
		}
		b.WriteString(c.Text + "\n\n")
		size += n + 2
	}
	if size == 0 {
		return "", false
	}
	return strings.TrimSpace(b.String()), true
}

func splitLines(text string) []string {
	return nonBlank(strings.Split(text, "\n"))
}

func splitList(text string) []string {
	return nonBlank(strings.Split(text, ","))
}

func nonBlank(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// extractMermaid returns the first ```mermaid block, fences included.
func extractMermaid(text string) (string, bool) {
	start := strings.Index(text, models.MermaidFence)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(models.MermaidFence):]
	end := strings.Index(rest, models.CodeFence)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(models.MermaidFence + rest[:end] + models.CodeFence), true
}
