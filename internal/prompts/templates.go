package prompts

const answerTemplate = `You are an artificial intelligence acting like a {{.role}}.
The user has uploaded the following PDF document:

{{.context}}

User's question:
{{.question}}

Please answer this question like a {{.role}}, in a detailed and understandable way.
{{if .language}}{{.language}}
{{end}}Don't forget to reference the content of the document when answering.
Answer in plain prose and use only what the document says.`

const refineTemplate = `You are acting as a '{{.role}}'.
User's question: "{{.question}}"
Initial answer: "{{.answer}}"

TASK: {{.instruction}}
{{if .language}}{{.language}}
{{end}}Only provide the refined answer.`

const suggestTemplate = `Generate {{.count}} thought-provoking questions that a user in the role of '{{.role}}' might ask about the content below.
{{if .language}}{{.language}}
{{end}}
Content Summary:
---
{{.context}}
---

Provide only the questions, each on a new line. Do not number them or add any other text.`

const summaryTemplate = `You are acting as a '{{.role}}'.
Generate a comprehensive summary of the following text.
{{if .language}}{{.language}}
{{end}}
Text:
---
{{.context}}
---

Please provide a well-structured summary including the main points of the above text.`

const keywordsTemplate = `You are acting as a '{{.role}}'.
Extract the top {{.count}} keywords or concepts from the following text.
{{if .language}}{{.language}}
{{end}}
Text:
---
{{.context}}
---

List the keywords as a single comma-separated string. Add nothing else.`

const conceptMapExample = "Example Output Format (Mermaid.js graph TD):\n" +
	"```mermaid\n" +
	"graph TD\n" +
	"    A[Main Concept] --> B(Sub Concept 1)\n" +
	"    A --> C(Sub Concept 2)\n" +
	"    B --> D{Detail 1.1}\n" +
	"    B --> E{Detail 1.2}\n" +
	"    C --> F{Detail 2.1}\n" +
	"```"

const conceptMapTemplate = `As a '{{.role}}', analyze the main concepts and their relationships in the following text.
Based on this analysis, create a text-based concept map. Provide the output in Mermaid.js 'graph TD' or 'graph LR' format. The map should hierarchically show the main ideas and their sub-topics.
{{if .language}}{{.language}}
{{end}}
Text:
---
{{.context}}
---

{{.example}}

Reply with ONLY the Mermaid.js code block (` + "```mermaid ... ```" + `). Do not add any explanation or other text.`

const timelineTemplate = `As a '{{.role}}', analyze the following text to identify dates and the significant events or information associated with them.
Based on this analysis, create a chronologically ordered timeline. List each item in the format 'Date: Description'.
{{if .language}}{{.language}}
{{end}}
Text:
---
{{.context}}
---

List the events in chronological order, each on a new line. If the text has no clear dates, reply exactly: "{{.sentinel}}"`
