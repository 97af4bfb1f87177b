package rag

import (
	"fmt"
	"strings"

	"github.com/obelisk-rag/obelisk/internal/vectorstore"
)

const promptInstructions = "Use the following documents to answer the question. " +
	"If the documents do not contain the answer, say so instead of guessing."

// buildPrompt assembles the generation prompt from retrieved chunks.
// Documents are numbered in retrieval order, best match first.
func buildPrompt(question string, results []vectorstore.Result) string {
	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\n")

	for i, r := range results {
		fmt.Fprintf(&b, "Document %d:\n%s\n\n", i+1, r.Content)
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
