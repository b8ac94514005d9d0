package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"docqa/internal/chromemdb"
	"docqa/internal/models"
	"docqa/internal/rag"
	"docqa/internal/report"
	"docqa/internal/session"
)

const chatHelp = `Type a question, or one of:
  /elaborate          expand the last answer
  /simplify           simplify the last answer
  /summary            summarize the documents
  /keywords           extract keywords
  /map                build a concept map
  /timeline           extract a timeline
  /suggest            suggest questions
  /upload a.pdf,b.pdf index a new batch
  /history            show the conversation
  /export file.html   export the session (.html, .pdf or .md)
  /clear              forget the conversation
  /quit               leave`

// runChat reads one command or question per line until /quit or EOF.
func (a *app) runChat(ctx context.Context, sess *session.Session, idx *chromemdb.Index, in io.Reader, out io.Writer) {
	if idx == nil {
		if loaded, err := a.store.Load(ctx); err == nil {
			idx = loaded
			sess.StartBatch(idx.Chunks())
		} else {
			log.Info().Err(err).Msg("No index yet, use /upload")
		}
	}

	fmt.Fprintf(out, "Role: %s | Language: %s\n%s\n", sess.Role, sess.Language, chatHelp)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return
		case "/help":
			fmt.Fprintln(out, chatHelp)
		case "/elaborate", "/simplify":
			text, err := a.rag.RefineLast(ctx, sess, rag.RefineKind(strings.TrimPrefix(cmd, "/")))
			reportErr(out, err)
			fmt.Fprintf(out, "%s\n\n", text)
		case "/summary", "/keywords", "/map", "/timeline", "/suggest":
			text, err := a.bulkTask(ctx, sess, strings.TrimPrefix(cmd, "/"))
			reportErr(out, err)
			fmt.Fprintf(out, "%s\n\n", text)
		case "/upload":
			if fresh := a.ingestFiles(ctx, sess, splitPaths(arg)); fresh != nil {
				idx = fresh
			}
		case "/history":
			printHistory(out, sess.History())
		case "/export":
			if arg == "" {
				fmt.Fprintln(out, "usage: /export file.html")
				continue
			}
			if err := report.WriteFile(arg, sess); err != nil {
				reportErr(out, err)
				continue
			}
			fmt.Fprintf(out, "Session exported to %s\n", arg)
		case "/clear":
			sess.Clear()
			fmt.Fprintln(out, "Conversation cleared.")
		default:
			if strings.HasPrefix(cmd, "/") {
				fmt.Fprintf(out, "Unknown command %s, try /help\n", cmd)
				continue
			}
			a.chatAnswer(ctx, sess, idx, line, out)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Error reading input")
	}
}

func (a *app) chatAnswer(ctx context.Context, sess *session.Session, idx *chromemdb.Index, question string, out io.Writer) {
	answer, err := a.rag.Ask(ctx, sess, idx, question)
	if errors.Is(err, models.ErrIndexNotFound) {
		fmt.Fprintln(out, "No documents indexed yet, use /upload first.")
		return
	}
	reportErr(out, err)
	fmt.Fprintf(out, "%s\n", answer.Text)
	if refs := session.References(answer.Sources); len(refs) > 0 {
		fmt.Fprintf(out, "Sources: %s\n", strings.Join(refs, "; "))
	}
	fmt.Fprintln(out)
}

func printHistory(out io.Writer, history []models.ConversationEntry) {
	if len(history) == 0 {
		fmt.Fprintln(out, "No questions yet.")
		return
	}
	for i, e := range history {
		fmt.Fprintf(out, "%d. [%s, %s] %s\n   %s\n", i+1, e.Role, e.Language, e.Question, e.Answer)
		if e.RefinedAnswer != "" {
			fmt.Fprintf(out, "   refined: %s\n", e.RefinedAnswer)
		}
	}
}

// reportErr shows a failed task without leaving the loop; the fallback text is printed by the caller.
func reportErr(out io.Writer, err error) {
	if err == nil {
		return
	}
	log.Warn().Err(err).Msg("Command failed")
	if errors.Is(err, models.ErrInvalidArgument) || errors.Is(err, models.ErrNoContent) {
		fmt.Fprintf(out, "(%v)\n", err)
	}
}
