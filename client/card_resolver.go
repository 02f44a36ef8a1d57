// Copyright 2025 The Go A2A Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/taskbridge"
)

// errCardNotFound marks a card path the agent does not serve.
var errCardNotFound = errors.New("agent card not found")

// CardResolver fetches an agent's discovery card.
type CardResolver struct {
	hc      *http.Client
	baseURL string
}

// NewCardResolver creates a resolver for the agent rooted at baseURL. A nil
// hc uses [http.DefaultClient].
func NewCardResolver(baseURL string, hc *http.Client) *CardResolver {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &CardResolver{
		hc:      hc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Resolve fetches the card from [a2a.AgentCardWellKnownPath], falling back to
// [a2a.LegacyAgentCardWellKnownPath] when the agent does not serve the former.
func (r *CardResolver) Resolve(ctx context.Context) (*a2a.AgentCard, error) {
	card, err := r.GetAgentCard(ctx, a2a.AgentCardWellKnownPath)
	if errors.Is(err, errCardNotFound) {
		card, err = r.GetAgentCard(ctx, a2a.LegacyAgentCardWellKnownPath)
	}
	return card, err
}

// GetAgentCard fetches an agent card from a path relative to the base URL.
func (r *CardResolver) GetAgentCard(ctx context.Context, relativeCardPath string) (*a2a.AgentCard, error) {
	targetURL := r.baseURL + "/" + strings.TrimLeft(relativeCardPath, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w at %s", errCardNotFound, targetURL)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("fetch agent card from %s: %s", targetURL, resp.Status)
	}

	var agentCard a2a.AgentCard
	dec := jsontext.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := json.UnmarshalDecode(dec, &agentCard); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}
	if err := agentCard.Validate(); err != nil {
		return nil, fmt.Errorf("agent card from %s: %w", targetURL, err)
	}
	return &agentCard, nil
}
