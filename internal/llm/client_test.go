package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/heartline/internal/config"
)

func TestNewClientGemini(t *testing.T) {
	cfg := config.LLMConfig{Provider: "gemini", GeminiKey: "test-key"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	g, ok := client.(*Gemini)
	if !ok {
		t.Fatalf("expected *Gemini, got %T", client)
	}
	if g.model != "gemini-2.0-flash" {
		t.Errorf("model = %q, want default", g.model)
	}
}

func TestNewClientGeminiMissingKey(t *testing.T) {
	if _, err := NewClient(config.LLMConfig{Provider: "gemini"}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewClientAnthropic(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic", AnthropicKey: "test-key", Model: "claude-haiku-4-5-20251001"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*Anthropic); !ok {
		t.Errorf("expected *Anthropic, got %T", client)
	}
}

func TestNewClientAnthropicMissingKey(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic"}
	_, err := NewClient(cfg)
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewClientOllama(t *testing.T) {
	cfg := config.LLMConfig{Provider: "ollama", OllamaModel: "llama3.2"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*Ollama); !ok {
		t.Errorf("expected *Ollama, got %T", client)
	}
}

func TestNewClientMock(t *testing.T) {
	client, err := NewClient(config.LLMConfig{Provider: "mock"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	resp, err := client.Complete(context.Background(), "hi")
	if err != nil || resp.Content == "" {
		t.Errorf("mock Complete = %v, %v", resp, err)
	}
}

func TestNewClientUnknown(t *testing.T) {
	cfg := config.LLMConfig{Provider: "gpt"}
	_, err := NewClient(cfg)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestGeminiComplete(t *testing.T) {
	var gotPath, gotKey, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want none", r.URL.RawQuery)
		}
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
			gotText = body.Contents[0].Parts[0].Text
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"  안녕하세요!  "}]}}],"usageMetadata":{"totalTokenCount":12}}`)
	}))
	defer srv.Close()

	g := NewGemini("k", "gemini-test", time.Second)
	g.baseURL = srv.URL + "/models/"

	resp, err := g.Complete(context.Background(), "프롬프트")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "안녕하세요!" || resp.Provider != "gemini" || resp.TokensUsed != 12 {
		t.Errorf("resp = %+v", resp)
	}
	if gotPath != "/models/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "k" {
		t.Errorf("key = %q", gotKey)
	}
	if gotText != "프롬프트" {
		t.Errorf("prompt = %q", gotText)
	}
}

func TestGeminiKeyNotInTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	g := NewGemini("secret-key", "m", time.Second)
	g.baseURL = srv.URL + "/"
	_, err := g.Complete(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks the API key: %v", err)
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusTooManyRequests, `{"error":"quota"}`},
		{"empty", http.StatusOK, `{"candidates":[]}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := NewGemini("k", "m", time.Second)
			g.baseURL = srv.URL + "/"
			if _, err := g.Complete(context.Background(), "x"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"content":[{"type":"text","text":"네, "},{"type":"text","text":"좋아요"}],"usage":{"input_tokens":3,"output_tokens":4}}`)
	}))
	defer srv.Close()

	a := NewAnthropic("key", "m", time.Second)
	a.url = srv.URL
	resp, err := a.Complete(context.Background(), "x")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "네, 좋아요" || resp.TokensUsed != 7 {
		t.Errorf("resp = %+v", resp)
	}

	a.apiKey = "wrong"
	if _, err := a.Complete(context.Background(), "x"); err == nil {
		t.Error("expected error for rejected key")
	}
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{"response":"반가워요\n","prompt_eval_count":5,"eval_count":2}`)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL+"/", "llama3.2", time.Second)
	resp, err := o.Complete(context.Background(), "x")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "반가워요" || resp.TokensUsed != 7 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestReplyPrompt(t *testing.T) {
	p := ReplyPrompt("INSTRUCTION", "최근 우리의 대화 내용:\n민수: 안녕", "민수", "뭐해?")
	for _, want := range []string{"INSTRUCTION", "'민수'", "최근 우리의 대화 내용", "민수의 새 메시지: 뭐해?", "카오루코로서 답변해줘:"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasPrefix(p, "INSTRUCTION") {
		t.Error("instruction should lead the prompt")
	}

	anon := ReplyPrompt("I", "", "", "hi")
	if !strings.Contains(anon, DefaultUserName+"의 새 메시지: hi") {
		t.Errorf("anonymous prompt = %q", anon)
	}
}

func TestEmotionAnalysisPrompt(t *testing.T) {
	p := EmotionAnalysisPrompt("귀여워", "어... 고마워요", "민수")
	for _, want := range []string{"민수님", `"귀여워"`, "수줍음(😳)", "설렘", `"confidence"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestMockClient(t *testing.T) {
	mock := &MockClient{
		Response: &Response{Content: "test response", Provider: "mock"},
	}

	resp, err := mock.Complete(context.Background(), "test prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("content = %q, want %q", resp.Content, "test response")
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.Calls[0] != "test prompt" {
		t.Errorf("call[0] = %q, want %q", mock.Calls[0], "test prompt")
	}
}

func TestMockClientSequenceAndError(t *testing.T) {
	mock := &MockClient{Responses: []*Response{{Content: "a"}, {Content: "b"}}}
	for _, want := range []string{"a", "b", "b"} {
		resp, _ := mock.Complete(context.Background(), "p")
		if resp.Content != want {
			t.Errorf("content = %q, want %q", resp.Content, want)
		}
	}

	failing := &MockClient{Err: errors.New("down")}
	if _, err := failing.Complete(context.Background(), "p"); err == nil {
		t.Error("expected error")
	}
}

func TestPostJSONTruncatesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, strings.Repeat("x", 2*errBodyLimit))
	}))
	defer srv.Close()

	var out struct{}
	err := postJSON(context.Background(), srv.Client(), "test", srv.URL, nil, map[string]string{}, &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "test api status 502: ") {
		t.Errorf("err = %v", err)
	}
	if strings.Count(err.Error(), "x") != errBodyLimit {
		t.Errorf("error body not truncated: %d bytes", len(err.Error()))
	}
}
