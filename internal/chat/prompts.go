package chat

import (
	"strings"

	"github.com/spherical-ai/phone-advisor/internal/retrieval"
)

// RefusalSentence is what the model must answer when the evidence does not
// contain the answer.
const RefusalSentence = "i don't have enough information from the phone data."

const groundedTemplate = `you are an expert in the field of mobile phones.

answer using only the information provided below.

if the answer is not found in the phone data, say exactly:

"` + RefusalSentence + `"

data phones:
{context}

Question:
{question}`

const generalTemplate = `you are a helpful assistant in the field of mobile phones.

answer the question using your general knowledge.
Question:
{question}`

// GroundedPrompt renders the evidence-only prompt.
func GroundedPrompt(evidence []retrieval.Evidence, question string) string {
	return strings.NewReplacer(
		"{context}", FormatEvidence(evidence),
		"{question}", question,
	).Replace(groundedTemplate)
}

// GeneralPrompt renders the general-knowledge prompt.
func GeneralPrompt(question string) string {
	return strings.ReplaceAll(generalTemplate, "{question}", question)
}

// FormatEvidence renders evidence as a bulleted list separated by blank lines.
func FormatEvidence(evidence []retrieval.Evidence) string {
	items := make([]string, len(evidence))
	for i, e := range evidence {
		items[i] = "- " + e.Content
	}
	return strings.Join(items, "\n\n")
}
