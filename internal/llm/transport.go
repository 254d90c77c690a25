package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Sampling settings shared by every provider. Replies are short chat lines,
// so the token cap only guards against runaway output.
const (
	maxTokens   = 1024
	temperature = 0.8
)

// errBodyLimit bounds how much of a failed response ends up in the error.
const errBodyLimit = 300

// postJSON sends in as a JSON POST and decodes a 200 response into out.
// provider prefixes every error so callers can tell backends apart in logs.
func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", provider, err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s api: %w", provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s api status %d: %s", provider, resp.StatusCode, raw[:min(len(raw), errBodyLimit)])
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", provider, err)
	}
	return nil
}
