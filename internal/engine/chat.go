package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/llm"
	"github.com/lazypower/heartline/internal/milestone"
	"github.com/lazypower/heartline/internal/transcript"
)

var errNoGenerator = errors.New("no generator configured")

// ChatResult is an interaction with the generated reply and the emotion
// observed in it.
type ChatResult struct {
	*Interaction
	Reply       string              `json:"reply"`
	Fallback    bool                `json:"fallback"`
	Discarded   bool                `json:"discarded,omitempty"`
	Observation emotion.Observation `json:"observation"`

	// EventViews replaces the raw events in the JSON response.
	EventViews []milestone.View `json:"events"`
}

// Chat runs Interact, asks the generator for a reply and records the
// exchange. A generator failure does not fail the chat: the reply falls back
// to a line matching the current emotion. Persistence errors are returned.
// The exchange is recorded under the user lock and dropped when the user was
// reset while the generator ran.
func (e *Engine) Chat(ctx context.Context, req Request) (*ChatResult, error) {
	req = req.normalize()
	ia, err := e.Interact(ctx, req)
	if err != nil {
		return nil, err
	}

	history, err := e.store.RecentTurns(ctx, req.UserID, e.historyTurns)
	if err != nil {
		return nil, err
	}
	prompt := llm.ReplyPrompt(ia.Instruction, transcript.Condense(history, req.Name, BotName), req.Name, req.Message)

	res := &ChatResult{Interaction: ia, EventViews: milestone.FormatAll(ia.Events)}
	reply, err := e.generate(ctx, prompt)
	if err != nil {
		log.Printf("chat: generation failed for %s: %v", req.UserID, err)
		reply = fallbackReply(ia)
		res.Fallback = true
	}
	res.Reply = reply

	res.Observation = e.analyzer.Analyze(ctx, req.UserID, req.Message, reply, req.Name)

	unlock := e.locks.lock(req.UserID)
	defer unlock()
	if e.resets.generation(req.UserID) != ia.generation {
		log.Printf("chat: %s was reset during generation, turn not recorded", req.UserID)
		res.Discarded = true
		return res, nil
	}
	if err := e.store.AppendObservation(ctx, res.Observation); err != nil {
		return nil, err
	}
	if err := e.store.AppendTurn(ctx, transcript.Turn{
		UserID:      req.UserID,
		UserMessage: req.Message,
		BotReply:    reply,
		Timestamp:   e.now(),
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// fallbackReply answers without a generator: the stage-up line when the user
// just reached a higher stage, otherwise a line matching the emotion.
func fallbackReply(ia *Interaction) string {
	if ia.leveledUp() {
		return affection.StageUpMessage(ia.Stage)
	}
	return emotion.Response(ia.Emotion.Emotion, ia.Emotion.Intensity)
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.client == nil {
		return "", errNoGenerator
	}
	start := time.Now()
	resp, err := e.client.Complete(ctx, prompt)
	if err == nil && (resp == nil || strings.TrimSpace(resp.Content) == "") {
		err = errors.New("empty reply")
	}
	e.metrics.ObserveGeneration("reply", err, time.Since(start))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
