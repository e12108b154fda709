// Package prompt assembles retrieved chunks and a question into the payload
// sent to the chat model.
package prompt

import (
	"strings"

	"github.com/fyrsmithlabs/medichat/internal/vectorstore"
)

// Delimiter separates chunk texts in the context section.
const Delimiter = "\n\n"

// SystemInstruction frames every request.
const SystemInstruction = "You are MediChat Pro, an intelligent medical document assistant. " +
	"Based on the following medical documents, provide accurate and helpful answers. " +
	"If the information is not in the documents, clearly state that."

// Prompt is the structured model input: a system instruction plus the two
// labeled sections, context and question.
type Prompt struct {
	System   string `json:"system"`
	Context  string `json:"context"`
	Question string `json:"question"`
}

// Assemble joins the chunk texts of results in the order given and pairs
// them with question.
func Assemble(question string, results []vectorstore.SearchResult) Prompt {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Text
	}
	return Prompt{
		System:   SystemInstruction,
		Context:  strings.Join(parts, Delimiter),
		Question: question,
	}
}

// User renders the labeled context and question sections, without the
// system instruction, for backends that take the instruction separately.
func (p Prompt) User() string {
	var b strings.Builder
	b.WriteString("Medical Documents:\n")
	b.WriteString(p.Context)
	b.WriteString("\n\nUser Question: ")
	b.WriteString(p.Question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// Render returns the whole prompt as a single text payload.
func (p Prompt) Render() string {
	if p.System == "" {
		return p.User()
	}
	return p.System + "\n\n" + p.User()
}
