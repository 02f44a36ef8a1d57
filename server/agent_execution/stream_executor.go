// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"errors"
	"iter"

	a2a "github.com/go-a2a/taskbridge"
)

// DefaultArtifactName names the artifact carrying a completed answer.
const DefaultArtifactName = "result"

// Item is one step reported by a [StreamingAgent].
type Item struct {
	// Content is the text of the step.
	Content string

	// Complete marks Content as the final answer.
	Complete bool

	// RequiresInput marks Content as a question to the user.
	RequiresInput bool
}

// StreamingAgent produces zero or more progress items followed by exactly one
// item that is either complete or requires input.
type StreamingAgent interface {
	Stream(ctx context.Context, query, contextID string) iter.Seq2[Item, error]
}

// ErrNoOutcome is returned when a [StreamingAgent] stops without a
// terminal item.
var ErrNoOutcome = errors.New("agent stream ended without an outcome")

// StreamExecutor adapts a [StreamingAgent] to [AgentExecutor].
//
// Progress items become working updates, a question becomes a final
// input-required update, and an answer becomes an artifact named
// ArtifactName followed by completion. Cancellation is not supported.
type StreamExecutor struct {
	Agent        StreamingAgent
	ArtifactName string
}

var _ AgentExecutor = (*StreamExecutor)(nil)

// NewStreamExecutor creates a [StreamExecutor].
func NewStreamExecutor(agent StreamingAgent, artifactName string) *StreamExecutor {
	if artifactName == "" {
		artifactName = DefaultArtifactName
	}
	return &StreamExecutor{Agent: agent, ArtifactName: artifactName}
}

// Execute implements [AgentExecutor].
func (e *StreamExecutor) Execute(ctx context.Context, reqCtx *RequestContext, updater Updater) error {
	if reqCtx == nil {
		return errors.New("request context cannot be nil")
	}
	if updater == nil {
		return errors.New("updater cannot be nil")
	}

	for item, err := range e.Agent.Stream(ctx, reqCtx.UserInput(), reqCtx.ContextID) {
		if err != nil {
			return err
		}
		switch {
		case item.RequiresInput:
			return updater.RequiresInput(ctx, updater.NewAgentMessage(item.Content))
		case item.Complete:
			if err := updater.AddArtifact(ctx, []a2a.Part{a2a.TextPart{Text: item.Content}}, e.ArtifactName); err != nil {
				return err
			}
			return updater.Complete(ctx)
		default:
			if err := updater.StartWork(ctx, updater.NewAgentMessage(item.Content)); err != nil {
				return err
			}
		}
	}
	return ErrNoOutcome
}

// Cancel implements [AgentExecutor].
func (e *StreamExecutor) Cancel(context.Context, *RequestContext, Updater) error {
	return a2a.UnsupportedOperationError{Operation: "cancel"}
}
