package predictions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/2beens/watchstats/internal/telemetry/tracing"
)

// DefaultTextGenEndpoint is the Gemini generateContent endpoint used unless
// the config points elsewhere (e.g. to a stub in tests).
const DefaultTextGenEndpoint = "https://generativelanguage.googleapis.com/v1/models/gemini-1.5-pro:generateContent"

// TextGenClient talks to a Gemini-shaped generateContent API.
type TextGenClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

func NewTextGenClient(httpClient *http.Client, endpoint, apiKey string) *TextGenClient {
	if endpoint == "" {
		endpoint = DefaultTextGenEndpoint
	}
	return &TextGenClient{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

type textGenRequest struct {
	Contents         []textGenContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type textGenContent struct {
	Parts []textGenPart `json:"parts"`
}

type textGenPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type textGenResponse struct {
	Candidates []struct {
		Content textGenContent `json:"content"`
	} `json:"candidates"`
}

// GenerateText sends the prompt to the model and returns the first candidate
// text of the response.
func (c *TextGenClient) GenerateText(ctx context.Context, prompt string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "textgen.generate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	reqPayload := textGenRequest{
		Contents: []textGenContent{
			{Parts: []textGenPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.2,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	}
	reqJson, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqJson))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	query := req.URL.Query()
	query.Set("key", c.apiKey)
	req.URL.RawQuery = query.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBytes)
	}

	var genResp textGenResponse
	if err := json.Unmarshal(respBytes, &genResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
