package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"docqa/internal/helper"
	"docqa/internal/session"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown renders the session's derived results and history.
func Markdown(sess *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", sess.ID)
	fmt.Fprintf(&b, "Role: %s | Language: %s\n\n", sess.Role, sess.Language)

	if density := sess.PageDensity(); len(density) > 0 {
		b.WriteString("## Documents\n\n| Source | Page | Chunks |\n|---|---|---|\n")
		sources := make([]string, 0, len(density))
		for source := range density {
			sources = append(sources, source)
		}
		slices.Sort(sources)
		for _, source := range sources {
			pages := make([]int, 0, len(density[source]))
			for page := range density[source] {
				pages = append(pages, page)
			}
			slices.Sort(pages)
			for _, page := range pages {
				fmt.Fprintf(&b, "| %s | %d | %d |\n", source, page, density[source][page])
			}
		}
		b.WriteString("\n")
	}

	section(&b, "Summary", sess.Summary)
	if len(sess.Keywords) > 0 {
		section(&b, "Keywords", strings.Join(sess.Keywords, ", "))
	}
	if len(sess.SuggestedQuestions) > 0 {
		section(&b, "Suggested questions", "- "+strings.Join(sess.SuggestedQuestions, "\n- "))
	}
	section(&b, "Concept map", sess.ConceptMap)
	section(&b, "Timeline", sess.Timeline)

	history := sess.History()
	if len(history) > 0 {
		b.WriteString("## Conversation\n\n")
	}
	for i, entry := range history {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, entry.Question)
		fmt.Fprintf(&b, "_%s, %s, %s_\n\n", entry.Role, entry.Language, entry.AskedAt.Format(time.RFC3339))
		b.WriteString(entry.Answer + "\n\n")
		if entry.RefinedAnswer != "" {
			b.WriteString("**Refined answer**\n\n" + entry.RefinedAnswer + "\n\n")
		}
		if refs := session.References(entry.Sources); len(refs) > 0 {
			b.WriteString("**Sources**\n\n- " + strings.Join(refs, "\n- ") + "\n\n")
		}
	}
	return b.String()
}

func section(b *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, body)
}

// HTML renders the session as a standalone HTML page.
func HTML(sess *session.Session) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(sess)), &body); err != nil {
		return nil, fmt.Errorf("failed to render transcript: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>Session %s</title>\n</head>\n<body>\n", sess.ID)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// WriteFile exports the session to path, as HTML or PDF by extension and as
// Markdown otherwise.
func WriteFile(path string, sess *session.Session) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		if data, err = HTML(sess); err != nil {
			return err
		}
	case ".pdf":
		if data, err = PDF(sess); err != nil {
			return err
		}
	default:
		data = []byte(Markdown(sess))
	}

	if err := helper.CreateFolder(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
