package models

import "time"

// PageRecord is the text of one non-blank page of a source document.
type PageRecord struct {
	Text   string
	Source string
	Page   int
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Text   string
	Source string
	Page   int
	Index  int // position of the chunk within its page
}

// Answer is the answer text together with the chunks used as its context.
type Answer struct {
	Text    string
	Sources []Chunk
}

// ConversationEntry is one question/answer exchange of a session.
type ConversationEntry struct {
	Question      string
	Answer        string
	Sources       []Chunk
	Role          string
	Language      string
	RefinedAnswer string
	AskedAt       time.Time
}
