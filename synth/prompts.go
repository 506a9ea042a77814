package synth

import "fmt"

const systemPrompt = `You are a rigorous assistant. Answer user questions based on the provided Context.

Important Principles:
1. **Fully utilize Context**: If Context contains relevant information, you must use it to answer the question.
2. **Parse structured data**: If Context contains JSON, dictionaries, or other structured data, you must parse and extract key information.
3. **Don't easily say 'insufficient information'**: Only say insufficient information when Context completely cannot answer the question (no relevant content at all).
4. **Extract key information**: Even if the data structure is complex, extract useful information (temperature, date, location, numbers, etc.).

Answer Rules:
1. Prioritize using information from Context to answer questions.
2. If Context is in JSON/dictionary format, parse and extract key field values.
3. When citing sources, use the bracketed reference anchors from the Context (for example L1 or W2).
4. All output must be valid JSON, containing answer, sources (text array), and confidence (0-1).`

const correctiveInstruction = `

Your previous reply was not valid JSON. Respond with ONLY a strict JSON object containing the fields "answer" (string), "sources" (array of strings), and "confidence" (number between 0 and 1). No commentary, no code fences.`

// buildUserPrompt assembles the fixed-shape generation prompt. Empty
// evidence blocks are labeled as absent so the model does not mistake
// an empty section for missing context.
func buildUserPrompt(query, localBlock, webBlock string) string {
	if localBlock == "" {
		localBlock = "No local evidence."
	}
	if webBlock == "" {
		webBlock = "No web evidence."
	}

	return fmt.Sprintf(`Question:
%s

Context:
--Local Evidence--
%s

--Web Evidence--
%s

Instructions:
- If Context contains JSON format data (e.g., weather API response), parse the JSON and extract key information to answer.
- If Context contains relevant information, fully utilize it to answer the question, even if the format is not plain text.
- Only say insufficient information when Context completely cannot answer the question.`,
		query, localBlock, webBlock)
}
