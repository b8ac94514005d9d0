package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docqa/internal/chromemdb"
	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/helper"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/prompts"
	"docqa/internal/rag"
	"docqa/internal/session"
)

const configFilePath = "./configs/config.yaml"

// app holds the services shared by every mode.
type app struct {
	cfg      *config.Config
	store    *chromemdb.VectorDBManager
	ingester *rag.Ingester
	rag      *rag.RAG
}

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	role := flag.String("role", "", "Role the assistant plays, overrides session.role")
	lang := flag.String("lang", "", "Answer language (tr or en), overrides session.language")
	files := flag.String("files", "", "Comma separated documents to index")
	query := flag.String("query", "", "Question to answer from the index")
	task := flag.String("task", "", "Bulk task over the index: summary, keywords, concept-map, timeline, suggest")
	chat := flag.Bool("chat", false, "Start an interactive session")
	listRoles := flag.Bool("roles", false, "List the predefined roles")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		setupLogger(config.Default().Log)
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(cfg.Log)

	if *listRoles {
		for _, r := range cfg.Session.Roles {
			fmt.Println(r)
		}
		return
	}

	if *role != "" {
		cfg.Session.Role = *role
	}
	if *lang != "" {
		cfg.Session.Language = *lang
	}
	language, err := prompts.ParseLanguage(cfg.Session.Language)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid language")
	}
	if strings.TrimSpace(cfg.Session.Role) == "" {
		log.Fatal().Msg("Please select a role with -role or set session.role (see -roles)")
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing services")
	}
	sess := session.New(cfg.Session.Role, language)
	ctx := context.Background()

	switch {
	case *chat:
		var idx *chromemdb.Index
		if *files != "" {
			idx = a.ingestFiles(ctx, sess, splitPaths(*files))
		}
		a.runChat(ctx, sess, idx, os.Stdin, os.Stdout)
	case *files != "":
		a.ingestFiles(ctx, sess, splitPaths(*files))
	case *query != "":
		a.answerQuery(ctx, sess, *query)
	case *task != "":
		a.runTask(ctx, sess, *task)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
}

func newApp(cfg *config.Config) (*app, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, cfg.RAG.EmbedBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	embedSvc := embedding.NewService(embedder, cfg.EmbedLLM.Model, cfg.EmbedLLM.RetryAttempts, cfg.RAG.QueryCacheTTL)

	client, err := llmservice.NewClient(&cfg.InferenceLLM)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}

	store := chromemdb.NewVectorDBManager(embedSvc, embedSvc.Model(), &cfg.RAG)
	progress := func(done, total int) {
		log.Info().Msgf("Embedded %d/%d chunks", done, total)
	}
	return &app{
		cfg:      cfg,
		store:    store,
		ingester: rag.NewIngester(parser.NewChunker(&cfg.RAG), store, progress),
		rag:      rag.NewRAG(client, cfg),
	}, nil
}

// ingestFiles indexes a new batch and prepares its suggestions. It returns the
// fresh index, or nil when nothing could be indexed.
func (a *app) ingestFiles(ctx context.Context, sess *session.Session, paths []string) *chromemdb.Index {
	result, err := a.ingester.Ingest(ctx, paths)
	if result != nil {
		for _, f := range result.Files {
			if f.Err != nil {
				fmt.Printf("%s: skipped (%v)\n", f.Path, f.Err)
				continue
			}
			fmt.Printf("%s: %d pages, %d chunks\n", f.Path, f.Pages, f.Chunks)
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("Error building index")
		return nil
	}

	sess.StartBatch(result.Chunks)
	log.Info().Msg("Chunks per page: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(os.Stdout, sess.PageDensity())

	if err := a.rag.Prepare(ctx, sess); err != nil {
		log.Warn().Err(err).Msg("Could not prepare suggestions")
	}
	printList("Suggested questions", sess.SuggestedQuestions)
	printList("Keywords", sess.Keywords)
	return result.Index
}

func (a *app) loadIndex(ctx context.Context) *chromemdb.Index {
	idx, err := a.store.Load(ctx)
	if err != nil {
		if errors.Is(err, models.ErrIndexNotFound) {
			log.Error().Msg("No index found, please upload documents with -files first")
		} else {
			log.Error().Err(err).Msg("Index cannot be used, please upload the documents again")
		}
		return nil
	}
	return idx
}

func (a *app) answerQuery(ctx context.Context, sess *session.Session, query string) {
	idx := a.loadIndex(ctx)
	if idx == nil {
		os.Exit(1)
	}
	answer, err := a.rag.Ask(ctx, sess, idx, query)
	if err != nil && !errors.Is(err, models.ErrGeneration) {
		log.Fatal().Err(err).Msg("Error querying")
	}
	printAnswer(query, answer)
}

func (a *app) runTask(ctx context.Context, sess *session.Session, task string) {
	idx := a.loadIndex(ctx)
	if idx == nil {
		os.Exit(1)
	}
	sess.StartBatch(idx.Chunks())
	out, err := a.bulkTask(ctx, sess, task)
	if err != nil {
		log.Warn().Err(err).Str("task", task).Msg("Task did not complete")
	}
	fmt.Println(out)
}

// bulkTask runs one of the document-wide tasks over the session's chunks and
// stores the result on the session.
func (a *app) bulkTask(ctx context.Context, sess *session.Session, task string) (string, error) {
	switch task {
	case "summary":
		out, err := a.rag.Summarize(ctx, sess.Chunks, sess.Role, sess.Language)
		sess.Summary = out
		return out, err
	case "keywords":
		out, err := a.rag.ExtractKeywords(ctx, sess.Chunks, sess.Role, sess.Language, a.cfg.Session.NumKeywords)
		sess.Keywords = out
		return strings.Join(out, ", "), err
	case "concept-map", "map":
		out, err := a.rag.ConceptMap(ctx, sess.Chunks, sess.Role, sess.Language)
		sess.ConceptMap = out
		return out, err
	case "timeline":
		out, err := a.rag.Timeline(ctx, sess.Chunks, sess.Role, sess.Language)
		sess.Timeline = out
		return out, err
	case "suggest":
		out, err := a.rag.SuggestQuestions(ctx, sess.Chunks, sess.Role, sess.Language, a.cfg.Session.NumQuestions)
		sess.SuggestedQuestions = out
		return strings.Join(out, "\n"), err
	}
	return "", fmt.Errorf("%w: unknown task %q", models.ErrInvalidArgument, task)
}

func printAnswer(query string, answer models.Answer) {
	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", answer.Text)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, ref := range session.References(answer.Sources) {
		fmt.Printf("- %s\n", ref)
	}
	fmt.Println()
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, item := range items {
		fmt.Printf("- %s\n", item)
	}
}

func splitPaths(s string) []string {
	var paths []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
