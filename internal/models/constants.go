package models

const (
	ThinkTag        = `(?s)<think>.*?</think>\s*`
	MermaidFence    = "```mermaid"
	CodeFence       = "```"
	TruncatedMarker = "[Part of the content was truncated due to token limits.]"

	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
	DefaultTopK         = 4

	SuggestionsBudget = 2000
	SummaryBudget     = 10000
	KeywordsBudget    = 5000
	ConceptMapBudget  = 7000
	TimelineBudget    = 8000

	DefaultNumQuestions = 3
	DefaultNumKeywords  = 10
)

// fixed texts returned in place of model output
const (
	InvalidRefinementMsg   = "Invalid refinement type."
	RefineErrorMsg         = "An error occurred while refining the answer."
	AnswerErrorMsg         = "An error occurred while generating the answer."
	SummaryErrorMsg        = "An error occurred while generating the summary."
	ConceptMapErrorMsg     = "An error occurred while generating the concept map."
	ConceptMapFormatMsg    = "Concept map could not be generated (not in the expected format)."
	TimelineErrorMsg       = "An error occurred while extracting the timeline."
	NoSummaryContentMsg    = "No content available to summarize."
	NoConceptMapContentMsg = "No content found for concept map."
	NoTimelineContentMsg   = "No content found for timeline."
	GenericQuestionContext = "General questions about the document content."
)
