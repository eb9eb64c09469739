package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"feelance/internal/core"
)

// TitledDocument is the structured result the generation endpoints ask
// the model for: a title and a body under configurable keys.
type TitledDocument struct {
	Title string
	Body  string
}

const previewLimit = 200

// ExtractTitledJSON pulls a title/body document out of free-form model
// output. Strategies run in order and the first success wins:
//  1. direct decode of the whole content
//  2. decode of a fenced ```json code block
//  3. loose decode with key coercion and whitespace trimming
//
// When every strategy fails the error is core.ErrGenerationFailed
// carrying a truncated content preview for diagnostics.
func ExtractTitledJSON(content, titleKey, bodyKey string) (TitledDocument, error) {
	if doc, ok := decodeStrict(content, titleKey, bodyKey); ok {
		return doc, nil
	}

	for _, block := range fencedBlocks(content) {
		if doc, ok := decodeStrict(block, titleKey, bodyKey); ok {
			return doc, nil
		}
	}

	if doc, ok := decodeLoose(content, titleKey, bodyKey); ok {
		return doc, nil
	}

	return TitledDocument{}, fmt.Errorf("%w: %s", core.ErrGenerationFailed, preview(content))
}

// decodeStrict accepts only a JSON object with both keys present and
// non-empty.
func decodeStrict(content, titleKey, bodyKey string) (TitledDocument, bool) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return TitledDocument{}, false
	}
	title, body := raw[titleKey], raw[bodyKey]
	if title == "" || body == "" {
		return TitledDocument{}, false
	}
	return TitledDocument{Title: title, Body: body}, true
}

// decodeLoose tolerates non-string values and partial documents as long
// as at least one of the keys is usable.
func decodeLoose(content, titleKey, bodyKey string) (TitledDocument, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return TitledDocument{}, false
	}
	doc := TitledDocument{
		Title: strings.TrimSpace(coerceString(raw[titleKey])),
		Body:  strings.TrimSpace(coerceString(raw[bodyKey])),
	}
	if doc.Title == "" && doc.Body == "" {
		return TitledDocument{}, false
	}
	return doc, true
}

func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// fencedBlocks returns the contents of ``` fences, json-tagged ones
// first since those are what the model was asked for.
func fencedBlocks(content string) []string {
	parts := strings.Split(content, "```")
	if len(parts) < 3 {
		return nil
	}
	var tagged, plain []string
	// odd indexes are inside fences
	for i := 1; i < len(parts); i += 2 {
		block := strings.TrimSpace(parts[i])
		if rest, ok := strings.CutPrefix(block, "json"); ok {
			tagged = append(tagged, strings.TrimSpace(rest))
			continue
		}
		plain = append(plain, block)
	}
	return append(tagged, plain...)
}

func preview(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if len(flat) > previewLimit {
		return flat[:previewLimit] + "..."
	}
	return flat
}
