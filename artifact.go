// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Artifact is a finalized, named deliverable attached to a task.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       Parts          `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewArtifact creates an artifact with a fresh id.
func NewArtifact(name string, parts ...Part) *Artifact {
	return &Artifact{
		ArtifactID: uuid.NewString(),
		Name:       name,
		Parts:      Parts(parts),
	}
}

// NewTextArtifact creates an artifact holding a single [TextPart].
func NewTextArtifact(name, text string) *Artifact {
	return NewArtifact(name, TextPart{Text: text})
}

// Text returns the concatenated text of a's text parts.
func (a *Artifact) Text() string {
	if a == nil {
		return ""
	}
	return ExtractText(a.Parts)
}

// Clone returns a deep copy of a.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Parts = slices.Clone(a.Parts)
	c.Metadata = maps.Clone(a.Metadata)
	return &c
}
