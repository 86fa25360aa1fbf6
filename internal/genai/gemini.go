// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/design-engine/internal/httputil"
)

// geminiAPIURL is the Gemini generateContent endpoint, parameterized by
// model. Package-level var for test substitution.
var geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Gemini calls the Gemini REST API. Per prd007-generation R1.2.
type Gemini struct {
	APIKey string
	Model  string
	Client *http.Client
}

// geminiRequest is the request body for the generateContent API.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// geminiContent is one conversation turn.
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

// geminiPart is a text fragment within a turn.
type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse is the response body from the generateContent API.
type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends one prompt and returns the concatenated text of the first
// candidate. Rate-limit and overload responses are retried by
// httputil.DoWithRetry before this method gives up.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf(geminiAPIURL, g.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Gemini API returned %d: %s", resp.StatusCode, string(body))
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("decoding Gemini response: %w", err)
	}

	if len(gResp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini API returned no candidates")
	}

	var b strings.Builder
	for _, part := range gResp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content in Gemini API response")
	}
	return b.String(), nil
}
