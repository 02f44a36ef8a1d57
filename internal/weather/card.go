// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package weather

import (
	a2a "github.com/go-a2a/taskbridge"
)

// Version is the agent version advertised in its card.
const Version = "1.0.0"

// Card returns the agent card advertised at url.
func Card(url string, pushNotifications bool) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:        "Weather Agent",
		Description: "Answers questions about current weather conditions and remembers recent lookups.",
		URL:         url,
		Version:     Version,
		Capabilities: a2a.AgentCapabilities{
			Streaming:         true,
			PushNotifications: pushNotifications,
		},
		DefaultInputModes:  []string{"text", "text/plain"},
		DefaultOutputModes: []string{"text", "text/plain"},
		Skills: []a2a.AgentSkill{
			{
				ID:          "get_weather",
				Name:        "Weather Lookup Tool",
				Description: "Reports the current temperature, conditions, humidity and wind for a city.",
				Tags:        []string{"weather", "temperature", "forecast"},
				Examples:    []string{"What's the weather in Seoul?", "How hot is it in Tokyo in fahrenheit?"},
			},
			{
				ID:          "weather_history",
				Name:        "Weather History",
				Description: "Lists recent weather lookups.",
				Tags:        []string{"weather", "history"},
				Examples:    []string{"Show my recent weather searches"},
			},
		},
	}
}
