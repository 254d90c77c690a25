package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/engine"
	"github.com/lazypower/heartline/internal/llm"
	"github.com/lazypower/heartline/internal/metrics"
	"github.com/lazypower/heartline/internal/milestone"
	"github.com/lazypower/heartline/internal/server"
	"github.com/lazypower/heartline/internal/store"
)

func testClient(t *testing.T, gen llm.Client) *Client {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng, err := engine.New(db, engine.Options{
		Client: gen,
		Roller: milestone.NewRoller(milestone.NewSeeded(1), 0, 0),
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	ts := httptest.NewServer(server.New(eng, server.Options{Version: "test", Metrics: metrics.MustNew(reg), Gatherer: reg}))
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", time.Second*5)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, &llm.MockClient{Response: &llm.Response{Content: "헤헤"}})

	require.True(t, c.Healthy(ctx))

	res, err := c.Chat(ctx, "민수", "귀여워")
	require.NoError(t, err)
	assert.Equal(t, "헤헤", res.Reply)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, emotion.Joy, res.Emotion.Emotion)

	st, err := c.Status(ctx, "민수")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Score)
	assert.Equal(t, affection.Stranger, st.Stage)

	turns, err := c.History(ctx, "민수", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "귀여워", turns[0].UserMessage)

	stats, err := c.EmotionStats(ctx, "민수")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	a, err := c.Analyze(ctx, "진짜 귀여워")
	require.NoError(t, err)
	require.Len(t, a.Affection, 1)
	assert.Equal(t, 1.5, a.Affection[0].Multiplier)

	require.NoError(t, c.Reset(ctx, "민수"))
	turns, err = c.History(ctx, "민수", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestServerErrorsSurface(t *testing.T) {
	c := testClient(t, nil)
	_, err := c.Chat(context.Background(), "u", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "message required")
}

func TestUnreachableServer(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond)
	assert.False(t, c.Healthy(context.Background()))
	_, err := c.Status(context.Background(), "u")
	assert.Error(t, err)
}
