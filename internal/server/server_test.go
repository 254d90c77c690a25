package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lazypower/heartline/internal/engine"
	"github.com/lazypower/heartline/internal/llm"
	"github.com/lazypower/heartline/internal/metrics"
	"github.com/lazypower/heartline/internal/milestone"
	"github.com/lazypower/heartline/internal/store"
)

func testServer(t *testing.T, client llm.Client) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := prometheus.NewRegistry()
	m := metrics.MustNew(reg)
	eng, err := engine.New(db, engine.Options{
		Now:     func() time.Time { return now },
		Client:  client,
		Roller:  milestone.NewRoller(milestone.NewSeeded(1), 0, 0),
		Metrics: m,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return New(eng, Options{Version: "test-version", Metrics: m, Gatherer: reg})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v; body: %s", err, w.Body.String())
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	w := do(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := decode(t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
	if body["generator"] != false {
		t.Errorf("generator = %v, want false", body["generator"])
	}
}

func TestChat(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Response{
		{Content: "어... 고마워요!"},
		{Content: `{"emotion":"joy","intensity":7,"reason":"칭찬","confidence":0.9}`},
	}}
	srv := testServer(t, mock)

	w := do(t, srv, "POST", "/api/chat", `{"user_name":"민수","message":"귀여워"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	body := decode(t, w)
	if body["reply"] != "어... 고마워요!" {
		t.Errorf("reply = %v", body["reply"])
	}
	if body["fallback"] != false {
		t.Errorf("fallback = %v, want false", body["fallback"])
	}
	if body["affection_score"] != float64(3) {
		t.Errorf("affection_score = %v, want 3", body["affection_score"])
	}
	if body["relationship_stage"] != "stranger" {
		t.Errorf("relationship_stage = %v, want stranger", body["relationship_stage"])
	}
	emo, _ := body["emotion"].(map[string]any)
	if emo["emotion"] != "joy" {
		t.Errorf("emotion = %v, want joy", emo["emotion"])
	}
	if notices, _ := body["notices"].([]any); len(notices) == 0 {
		t.Error("expected notices")
	}
}

func TestChatFallback(t *testing.T) {
	srv := testServer(t, nil)

	w := do(t, srv, "POST", "/api/chat", `{"user_name":"민수","message":"안녕"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["fallback"] != true {
		t.Errorf("fallback = %v, want true", body["fallback"])
	}
	if body["reply"] == "" {
		t.Error("expected a fallback reply")
	}
}

func TestChatBadRequests(t *testing.T) {
	srv := testServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"user_name":`},
		{"empty message", `{"user_name":"민수","message":"  "}`},
	}
	for _, tt := range tests {
		w := do(t, srv, "POST", "/api/chat", tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, http.StatusBadRequest)
		}
		if decode(t, w)["error"] == "" {
			t.Errorf("%s: expected error message", tt.name)
		}
	}
}

func TestAnalyzeDoesNotCreateState(t *testing.T) {
	srv := testServer(t, nil)

	w := do(t, srv, "POST", "/api/analyze", `{"message":"진짜 귀여워?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	aff, _ := body["affection"].([]any)
	if len(aff) != 1 {
		t.Fatalf("affection = %v, want one match", body["affection"])
	}
	ctx, _ := body["context"].(map[string]any)
	if ctx["question"] != true {
		t.Errorf("context = %v, want question", body["context"])
	}

	w = do(t, srv, "GET", "/api/users/u/history", "")
	if got := decode(t, w)["count"]; got != float64(0) {
		t.Errorf("history count = %v, want 0", got)
	}
}

func TestUserRoutes(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "네!"}}
	srv := testServer(t, mock)

	for _, msg := range []string{"안녕", "귀여워", "고마워"} {
		if w := do(t, srv, "POST", "/api/chat", `{"user_name":"u","message":"`+msg+`"}`); w.Code != http.StatusOK {
			t.Fatalf("chat: status = %d", w.Code)
		}
	}

	w := do(t, srv, "GET", "/api/users/u?name=민수", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	status := decode(t, w)
	if status["title"] != "민수님" {
		t.Errorf("title = %v, want 민수님", status["title"])
	}
	if status["hearts"] == "" {
		t.Error("expected hearts")
	}

	w = do(t, srv, "GET", "/api/users/u/history?limit=2", "")
	if got := decode(t, w)["count"]; got != float64(2) {
		t.Errorf("history count = %v, want 2", got)
	}

	w = do(t, srv, "GET", "/api/users/u/emotions/stats", "")
	stats := decode(t, w)
	if stats["total_interactions"] != float64(3) {
		t.Errorf("total_interactions = %v, want 3", stats["total_interactions"])
	}
	if stats["dominant_emotion"] != "bashful" {
		t.Errorf("dominant_emotion = %v, want bashful", stats["dominant_emotion"])
	}

	w = do(t, srv, "GET", "/api/users/u/emotions", "")
	if got := decode(t, w)["count"]; got != float64(3) {
		t.Errorf("observation count = %v, want 3", got)
	}

	w = do(t, srv, "GET", "/api/users/u/instruction", "")
	if !strings.Contains(decode(t, w)["instruction"].(string), "와구리 카오루코") {
		t.Error("instruction missing persona")
	}

	w = do(t, srv, "POST", "/api/users/u/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reset: status = %d", w.Code)
	}
	w = do(t, srv, "GET", "/api/users/u/history", "")
	if got := decode(t, w)["count"]; got != float64(0) {
		t.Errorf("history after reset = %v, want 0", got)
	}
}

func TestEventsRoute(t *testing.T) {
	srv := testServer(t, nil)
	for i := 0; i < 2; i++ {
		do(t, srv, "POST", "/api/chat", `{"user_name":"u","message":"진짜 귀여워"}`)
	}
	w := do(t, srv, "GET", "/api/users/u/events", "")
	if got := decode(t, w)["count"]; got != float64(1) {
		t.Errorf("events = %v, want the 10-point milestone", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, nil)
	do(t, srv, "POST", "/api/chat", `{"user_name":"u","message":"귀여워"}`)
	do(t, srv, "GET", "/api/users/u", "")

	w := do(t, srv, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	out := w.Body.String()
	for _, want := range []string{
		"heartline_interactions_total 1",
		`heartline_affection_triggers_total{trigger="compliment"} 1`,
		`route="/api/chat"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := testServer(t, nil)
	if w := do(t, srv, "GET", "/api/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
