package generation

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// systemInstruction is the fixed role line sent with every request.
const systemInstruction = "You split one long flashcard into several shorter Q&A cards. " +
	"Always respond with a single valid JSON object only."

// defaultPromptTemplate encodes the structural contract with the model:
// a single JSON object with a cards list, plain-text question/answer
// fields, concise answers, a hard card cap, and the configured output
// language.
const defaultPromptTemplate = `Split the following flashcard into several smaller Q&A cards.

Language:
- Write both questions and answers in {{.OutputLanguage}}.

Rules:
- Create at most {{.MaxCards}} cards.
- Each answer should be concise: about 1-3 sentences.
- No bullet lists, no markdown, no HTML tags; plain text only.
- Keep important technical details, but avoid long prose.
- Some overlap between cards is OK.

Return ONLY one JSON object in this format (no extra text):

{
  "cards": [
    {"question": "...", "answer": "..."},
    ...
  ]
}

Original question:
{{.Question}}

Original answer:
{{.Answer}}
`

// promptData is the data passed to the prompt template.
type promptData struct {
	Question       string
	Answer         string
	OutputLanguage string
	MaxCards       int
}

// PromptBuilder renders generation payloads from a parsed template.
// Building a payload is deterministic: the same inputs always produce the
// same payload.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses the prompt template. When templatePath is
// empty the built-in template is used; otherwise the file at that path
// replaces it, which lets operators tune the instruction wording without
// rebuilding. The template must reference only the fields of promptData.
func NewPromptBuilder(templatePath string) (*PromptBuilder, error) {
	content := defaultPromptTemplate

	if templatePath != "" {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				ErrInvalidConfig, templatePath, err)
		}
		content = string(raw)
	}

	tmpl, err := template.New("split").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the instruction payload for one source note.
func (b *PromptBuilder) Build(question, answer, outputLanguage string, maxCards int) (Payload, error) {
	data := promptData{
		Question:       question,
		Answer:         answer,
		OutputLanguage: outputLanguage,
		MaxCards:       maxCards,
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return Payload{}, fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return Payload{
		System: systemInstruction,
		Prompt: buf.String(),
	}, nil
}
