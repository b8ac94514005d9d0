package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"docqa/internal/models"
	"docqa/internal/prompts"
)

// Session holds the state of one conversation: the current document batch,
// results derived from it and the question history.
type Session struct {
	ID       string
	Role     string
	Language prompts.Language

	Chunks             []models.Chunk
	SuggestedQuestions []string
	Keywords           []string
	Summary            string
	ConceptMap         string
	Timeline           string

	history []models.ConversationEntry
}

func New(role string, lang prompts.Language) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Role:     role,
		Language: lang,
	}
}

// StartBatch replaces the document batch and drops everything derived from
// the previous one. History is kept.
func (s *Session) StartBatch(chunks []models.Chunk) {
	s.Chunks = slices.Clone(chunks)
	s.SuggestedQuestions = nil
	s.Keywords = nil
	s.Summary = ""
	s.ConceptMap = ""
	s.Timeline = ""
}

// Append records an exchange, stamping the current role and language where unset.
func (s *Session) Append(entry models.ConversationEntry) {
	if entry.Role == "" {
		entry.Role = s.Role
	}
	if entry.Language == "" {
		entry.Language = s.Language.String()
	}
	if entry.AskedAt.IsZero() {
		entry.AskedAt = time.Now()
	}
	s.history = append(s.history, entry)
}

// SetRefined stores a refined answer on the last exchange.
func (s *Session) SetRefined(text string) error {
	if len(s.history) == 0 {
		return fmt.Errorf("%w: no answer to refine", models.ErrInvalidArgument)
	}
	s.history[len(s.history)-1].RefinedAnswer = text
	return nil
}

func (s *Session) Last() (models.ConversationEntry, bool) {
	if len(s.history) == 0 {
		return models.ConversationEntry{}, false
	}
	return s.history[len(s.history)-1], true
}

func (s *Session) History() []models.ConversationEntry {
	return slices.Clone(s.history)
}

// Clear forgets the conversation history.
func (s *Session) Clear() {
	s.history = nil
}

// PageDensity counts the chunks of each page, per source.
func (s *Session) PageDensity() map[string]map[int]int {
	density := make(map[string]map[int]int)
	for _, c := range s.Chunks {
		pages, ok := density[c.Source]
		if !ok {
			pages = make(map[int]int)
			density[c.Source] = pages
		}
		pages[c.Page]++
	}
	return density
}

// References lists the distinct "source (Page: n)" labels of chunks, sorted.
func References(chunks []models.Chunk) []string {
	refs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		refs = append(refs, fmt.Sprintf("%s (Page: %d)", c.Source, c.Page))
	}
	slices.Sort(refs)
	return slices.Compact(refs)
}
