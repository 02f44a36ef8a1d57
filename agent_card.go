// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
)

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// AgentSkill describes one thing the agent can do.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// AgentCard is the discovery document served at [AgentCardWellKnownPath].
// It carries no task state.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	ProtocolVersion    string            `json:"protocolVersion,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
	Skills             []AgentSkill      `json:"skills"`
}

// Validate checks the fields a client relies on.
func (c *AgentCard) Validate() error {
	if c == nil {
		return errors.New("agent card is nil")
	}
	if c.Name == "" {
		return errors.New("agent card name is required")
	}
	if c.URL == "" {
		return errors.New("agent card url is required")
	}
	if c.Version == "" {
		return errors.New("agent card version is required")
	}
	for i, s := range c.Skills {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("agent card skill %d requires id and name", i)
		}
	}
	return nil
}
