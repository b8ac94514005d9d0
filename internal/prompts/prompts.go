package prompts

import (
	"fmt"
	"strings"

	lcprompts "github.com/tmc/langchaingo/prompts"

	"docqa/internal/models"
)

// Task names a generation task with its own instruction template.
type Task string

const (
	TaskAnswer           Task = "answer"
	TaskElaborate        Task = "refine-elaborate"
	TaskSimplify         Task = "refine-simplify"
	TaskSuggestQuestions Task = "suggest-questions"
	TaskSummarize        Task = "summarize"
	TaskKeywords         Task = "extract-keywords"
	TaskConceptMap       Task = "concept-map"
	TaskTimeline         Task = "timeline"
)

// NoTimelineFound is the reply the timeline prompt asks for when the text has no dates.
const NoTimelineFound = "No clear timeline was found in the document."

// Input is the task content inserted into a template.
type Input struct {
	Context  string
	Question string
	Answer   string
	Count    int
}

type taskTemplate struct {
	template lcprompts.PromptTemplate
	// format of the language line, filled with the language name
	language string
	// tasks that ask for a number of items
	counted bool
}

var templates = map[Task]taskTemplate{
	TaskAnswer: {
		template: newTemplate(answerTemplate, nil),
		language: "Please provide the answer in %s.",
	},
	TaskElaborate: {
		template: newTemplate(refineTemplate, map[string]any{
			"instruction": "Expand the above answer with more technical terms and explanations.",
		}),
		language: "Provide the refined answer in %s.",
	},
	TaskSimplify: {
		template: newTemplate(refineTemplate, map[string]any{
			"instruction": "Rephrase the above answer in simpler language that anyone can understand.",
		}),
		language: "Provide the refined answer in %s.",
	},
	TaskSuggestQuestions: {
		template: newTemplate(suggestTemplate, nil),
		language: "Write the questions in %s.",
		counted:  true,
	},
	TaskSummarize: {
		template: newTemplate(summaryTemplate, nil),
		language: "Provide the summary in %s.",
	},
	TaskKeywords: {
		template: newTemplate(keywordsTemplate, nil),
		language: "Language preference: %s.",
		counted:  true,
	},
	TaskConceptMap: {
		template: newTemplate(conceptMapTemplate, map[string]any{
			"example": conceptMapExample,
		}),
		language: "Language preference for node labels: %s.",
	},
	TaskTimeline: {
		template: newTemplate(timelineTemplate, map[string]any{
			"sentinel": NoTimelineFound,
		}),
		language: "Language preference: %s.",
	},
}

func newTemplate(text string, partials map[string]any) lcprompts.PromptTemplate {
	return lcprompts.PromptTemplate{
		Template:         text,
		InputVariables:   []string{"role", "language", "context", "question", "answer", "count"},
		TemplateFormat:   lcprompts.TemplateFormatGoTemplate,
		PartialVariables: partials,
	}
}

// Tasks lists every task Compose accepts.
func Tasks() []Task {
	return []Task{
		TaskAnswer, TaskElaborate, TaskSimplify, TaskSuggestQuestions,
		TaskSummarize, TaskKeywords, TaskConceptMap, TaskTimeline,
	}
}

// Compose renders the instruction text for task. The role is inserted
// verbatim; a language outside the supported set adds no language line.
func Compose(task Task, role string, lang Language, in Input) (string, error) {
	t, ok := templates[task]
	if !ok {
		return "", fmt.Errorf("%w: unknown task %q", models.ErrInvalidArgument, task)
	}
	if t.counted && in.Count <= 0 {
		return "", fmt.Errorf("%w: task %s needs a positive count", models.ErrInvalidArgument, task)
	}

	var language string
	if name, ok := languageNames[lang]; ok {
		language = fmt.Sprintf(t.language, name)
	}

	out, err := t.template.Format(map[string]any{
		"role":     role,
		"language": language,
		"context":  strings.TrimSpace(in.Context),
		"question": in.Question,
		"answer":   in.Answer,
		"count":    in.Count,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", task, err)
	}
	return strings.TrimSpace(out) + "\n", nil
}
