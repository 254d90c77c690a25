package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const geminiAPI = "https://generativelanguage.googleapis.com/v1beta/models/"

// Gemini calls the Google Generative Language generateContent endpoint.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini client.
func NewGemini(apiKey, model string, timeout time.Duration) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiAPI,
		client:  &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Complete sends a single-turn prompt and returns the first candidate.
func (g *Gemini) Complete(ctx context.Context, prompt string) (*Response, error) {
	var in geminiRequest
	in.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	in.GenerationConfig.MaxOutputTokens = maxTokens
	in.GenerationConfig.Temperature = temperature

	// The key travels in a header: transport errors quote the URL.
	header := http.Header{}
	header.Set("x-goog-api-key", g.apiKey)
	var out geminiResponse
	if err := postJSON(ctx, g.client, "gemini", g.baseURL+g.model+":generateContent", header, in, &out); err != nil {
		return nil, err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini api: empty response")
	}

	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return &Response{
		Content:    strings.TrimSpace(text.String()),
		Provider:   "gemini",
		TokensUsed: out.UsageMetadata.TotalTokenCount,
	}, nil
}
