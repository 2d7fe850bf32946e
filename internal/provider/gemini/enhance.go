package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const enhanceModel = "gemini-2.5-flash"

// EnhancePrompt rewrites a user prompt into a denser cinematic description
// using a cheap text model. Enhancement is best-effort: any failure returns
// the original prompt unchanged.
func (c *Client) EnhancePrompt(ctx context.Context, prompt string, isContinuation bool) (string, error) {
	instruction := "You are a cinematic director. Rewrite this prompt into a detailed visual description " +
		"for a generative media model. Focus on lighting, composition, color grading, and texture. "
	if isContinuation {
		instruction += "The result is the next shot in a sequence; keep the established style. "
	}
	instruction += "Output only the rewritten prompt.\n\nUser prompt: " + prompt

	apiReq := &generateContentRequest{
		Contents: []content{{Parts: []contentPart{{Text: instruction}}}},
	}

	url := c.baseURL + "/models/" + enhanceModel + ":generateContent"
	body, status, err := c.postJSON(ctx, url, apiReq)
	if err != nil {
		return prompt, err
	}

	var apiResp generateContentResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return prompt, err
	}
	if apiResp.Error != nil || status != http.StatusOK {
		return prompt, nil
	}

	for _, cand := range apiResp.Candidates {
		for _, part := range cand.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				return text, nil
			}
		}
	}
	return prompt, nil
}
