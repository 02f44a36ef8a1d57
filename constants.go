// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

// A2A protocol path constants.
const (
	// AgentCardWellKnownPath is the standard path of an agent's public card.
	AgentCardWellKnownPath = "/.well-known/agent-card.json"

	// LegacyAgentCardWellKnownPath is the card path used by earlier protocol revisions.
	LegacyAgentCardWellKnownPath = "/.well-known/agent.json"

	// JWKSWellKnownPath serves the keys that sign push notifications.
	JWKSWellKnownPath = "/.well-known/jwks.json"

	// DefaultRPCURL is the default path of the JSON-RPC endpoint.
	DefaultRPCURL = "/"
)

// HTTP headers used by push notifications.
const (
	// NotificationTokenHeader carries the token a client registered with its webhook.
	NotificationTokenHeader = "X-A2A-Notification-Token"

	// PushUserAgent identifies the push sender.
	PushUserAgent = "a2a-go-push-notification-sender"
)
