package llm

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Ollama calls a local Ollama server.
type Ollama struct {
	url    string
	model  string
	client *http.Client
}

// NewOllama creates an Ollama client for the server at url.
func NewOllama(url, model string, timeout time.Duration) *Ollama {
	return &Ollama{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete runs a non-streaming generate call.
func (o *Ollama) Complete(ctx context.Context, prompt string) (*Response, error) {
	in := ollamaRequest{
		Model:   o.model,
		Prompt:  prompt,
		Options: ollamaOptions{Temperature: temperature, NumPredict: maxTokens},
	}
	var out ollamaResponse
	if err := postJSON(ctx, o.client, "ollama", o.url+"/api/generate", nil, in, &out); err != nil {
		return nil, err
	}
	return &Response{
		Content:    strings.TrimSpace(out.Response),
		Provider:   "ollama",
		TokensUsed: out.PromptEvalCount + out.EvalCount,
	}, nil
}
