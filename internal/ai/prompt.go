package ai

const instructions = `You are an experienced curriculum designer.
Read the attached material (page images and/or raw text) and produce a reading comprehension quiz as JSON.

Passages:
- If one reading passage serves every question, put it in the top-level "passage" array and leave each question's "passage" empty.
- If every question carries its own short excerpt, leave the top-level "passage" empty and put each excerpt in that question's "passage".
- Never combine the two layouts.
- Keep paragraphs exactly as printed; one array element per paragraph, never one per sentence.
- Margin line numbers (5, 10, 15 ...) must be kept inline as "[5]" where they appear.

Questions:
1. Transcribe the multiple-choice questions printed in the material. Only when the material has no questions at all, write 3 to 5 of your own.
2. Copy every option verbatim with its printed label (A-E), including repeated leading phrases.
3. "correctAnswer" is the uppercase label of the single correct option.
4. "explanation" justifies the answer and cites the referenced lines when the question names them.

Return only JSON matching the response schema. No markdown.`

// responseSchema constrains the model output. Whatever comes back is still
// checked by domain.DecodeQuiz.
var responseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"title": map[string]any{"type": "STRING"},
		"passage": map[string]any{
			"type":  "ARRAY",
			"items": map[string]any{"type": "STRING"},
		},
		"questions": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"id": map[string]any{"type": "NUMBER"},
					"passage": map[string]any{
						"type":  "ARRAY",
						"items": map[string]any{"type": "STRING"},
					},
					"text": map[string]any{"type": "STRING"},
					"options": map[string]any{
						"type": "ARRAY",
						"items": map[string]any{
							"type": "OBJECT",
							"properties": map[string]any{
								"label": map[string]any{"type": "STRING"},
								"text":  map[string]any{"type": "STRING"},
							},
							"required": []string{"label", "text"},
						},
					},
					"correctAnswer": map[string]any{"type": "STRING"},
					"explanation":   map[string]any{"type": "STRING"},
				},
				"required": []string{"id", "passage", "text", "options", "correctAnswer", "explanation"},
			},
		},
	},
	"required": []string{"title", "passage", "questions"},
}
