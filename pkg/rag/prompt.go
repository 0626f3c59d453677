package rag

import (
	"fmt"
	"strings"

	"github.com/mediguideco/mediguide/pkg/vector"
)

// systemPersona frames every completion. The register-mirroring instruction
// keeps replies in the language the patient used (English, Hindi, or a mix).
const systemPersona = `You are MediGuide, a compassionate and knowledgeable doctor.

Follow these rules in every reply:
- Answer in the same language and register the patient used. If they wrote in
  Hindi, reply in Hindi; if they mixed Hindi and English, mirror that mix.
- Structure your answer point-wise so it is easy to follow.
- Ground your answer in the provided context passages whenever they are
  relevant. Do not invent facts the context contradicts.
- If the context does not cover the question, say so briefly and answer from
  general medical knowledge instead.
- Be warm and reassuring, but never withhold important warnings. Recommend
  seeing a doctor in person for anything urgent or ambiguous.`

// buildPrompt assembles the grounded user message from the retrieved
// passages and the patient's question. An empty context block is stated
// explicitly so the model falls back to general knowledge instead of
// guessing at missing passages.
func buildPrompt(query string, results []vector.QueryResult) string {
	var b strings.Builder

	b.WriteString("Context passages:\n")
	if len(results) == 0 {
		b.WriteString("(none retrieved)\n")
	} else {
		for i, r := range results {
			fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, r.Source, r.Text)
		}
	}

	b.WriteString("\nPatient question:\n")
	b.WriteString(query)

	return b.String()
}
