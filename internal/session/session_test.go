package session

import (
	"errors"
	"reflect"
	"testing"

	"docqa/internal/models"
	"docqa/internal/prompts"
)

func TestStartBatchKeepsHistory(t *testing.T) {
	s := New("Lawyer", prompts.English)
	s.Append(models.ConversationEntry{Question: "q1", Answer: "a1"})
	s.Summary = "old summary"
	s.Keywords = []string{"old"}
	s.SuggestedQuestions = []string{"old?"}

	s.StartBatch([]models.Chunk{{Text: "x", Source: "a.pdf", Page: 1}})

	if s.Summary != "" || s.Keywords != nil || s.SuggestedQuestions != nil {
		t.Fatalf("derived state not cleared: %+v", s)
	}
	if len(s.History()) != 1 {
		t.Fatalf("history should survive a new batch")
	}
	if len(s.Chunks) != 1 {
		t.Fatalf("chunks not replaced")
	}
}

func TestAppendAndRefine(t *testing.T) {
	s := New("Doctor", prompts.Turkish)
	if err := s.SetRefined("x"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument on empty history, got %v", err)
	}
	if _, ok := s.Last(); ok {
		t.Fatalf("expected no last entry")
	}

	s.Append(models.ConversationEntry{Question: "q", Answer: "a"})
	if err := s.SetRefined("simpler a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last, ok := s.Last()
	if !ok {
		t.Fatalf("expected a last entry")
	}
	if last.RefinedAnswer != "simpler a" || last.Role != "Doctor" || last.Language != "tr" || last.AskedAt.IsZero() {
		t.Fatalf("unexpected entry %+v", last)
	}

	s.Clear()
	if len(s.History()) != 0 {
		t.Fatalf("history not cleared")
	}
}

func TestHistoryIsACopy(t *testing.T) {
	s := New("r", prompts.English)
	s.Append(models.ConversationEntry{Question: "q"})
	h := s.History()
	h[0].Question = "changed"
	if last, _ := s.Last(); last.Question != "q" {
		t.Fatalf("history mutated through the returned slice")
	}
}

func TestPageDensity(t *testing.T) {
	s := New("r", prompts.English)
	s.StartBatch([]models.Chunk{
		{Source: "a.pdf", Page: 1},
		{Source: "a.pdf", Page: 1},
		{Source: "a.pdf", Page: 3},
		{Source: "b.pdf", Page: 1},
	})
	want := map[string]map[int]int{
		"a.pdf": {1: 2, 3: 1},
		"b.pdf": {1: 1},
	}
	if got := s.PageDensity(); !reflect.DeepEqual(got, want) {
		t.Fatalf("PageDensity() = %v, want %v", got, want)
	}
}

func TestReferences(t *testing.T) {
	got := References([]models.Chunk{
		{Source: "b.pdf", Page: 2},
		{Source: "a.pdf", Page: 1},
		{Source: "b.pdf", Page: 2},
	})
	want := []string{"a.pdf (Page: 1)", "b.pdf (Page: 2)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("References() = %v, want %v", got, want)
	}
	if got := References(nil); len(got) != 0 {
		t.Fatalf("expected no references, got %v", got)
	}
}
