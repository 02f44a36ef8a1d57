// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// PartKind discriminates the variants of [Part].
type PartKind string

// PartKind constants.
const (
	PartKindText PartKind = "text"
	PartKindData PartKind = "data"
	PartKindFile PartKind = "file"
)

// Part is one element of a [Message] or [Artifact].
//
// The set of implementations is closed: [TextPart], [DataPart] and [FilePart].
type Part interface {
	PartKind() PartKind
	isPart()
}

// TextPart is a plain-text part.
type TextPart struct {
	Text     string
	Metadata map[string]any
}

// DataPart is a structured JSON object part.
type DataPart struct {
	Data     map[string]any
	Metadata map[string]any
}

// FileContent describes a file either inline (Bytes, base64) or by URI.
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// FilePart is a file reference part.
type FilePart struct {
	File     FileContent
	Metadata map[string]any
}

var (
	_ Part = TextPart{}
	_ Part = DataPart{}
	_ Part = FilePart{}
)

// PartKind implements [Part].
func (TextPart) PartKind() PartKind { return PartKindText }

// PartKind implements [Part].
func (DataPart) PartKind() PartKind { return PartKindData }

// PartKind implements [Part].
func (FilePart) PartKind() PartKind { return PartKindFile }

func (TextPart) isPart() {}
func (DataPart) isPart() {}
func (FilePart) isPart() {}

// MarshalJSON implements [json.Marshaler].
func (p TextPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     PartKind       `json:"kind"`
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{PartKindText, p.Text, p.Metadata})
}

// MarshalJSON implements [json.Marshaler].
func (p DataPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     PartKind       `json:"kind"`
		Data     map[string]any `json:"data"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{PartKindData, p.Data, p.Metadata})
}

// MarshalJSON implements [json.Marshaler].
func (p FilePart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     PartKind       `json:"kind"`
		File     FileContent    `json:"file"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{PartKindFile, p.File, p.Metadata})
}

// Parts is an ordered list of [Part] values that decodes its own variants.
type Parts []Part

// UnmarshalJSON implements [json.Unmarshaler].
//
// Each element is discriminated by "kind" (or the legacy "type") and may be
// wrapped once in a "root" object. Elements of an unrecognized kind are
// dropped rather than failing the whole list.
func (ps *Parts) UnmarshalJSON(b []byte) error {
	var raws []jsontext.Value
	if err := json.Unmarshal(b, &raws); err != nil {
		return fmt.Errorf("decode parts: %w", err)
	}
	out := make(Parts, 0, len(raws))
	for i, raw := range raws {
		p, err := decodePart(raw, true)
		if err != nil {
			return fmt.Errorf("decode part %d: %w", i, err)
		}
		if p != nil {
			out = append(out, p)
		}
	}
	*ps = out
	return nil
}

type wirePart struct {
	Kind     string         `json:"kind"`
	Type     string         `json:"type"`
	Text     string         `json:"text"`
	Data     map[string]any `json:"data"`
	File     FileContent    `json:"file"`
	Metadata map[string]any `json:"metadata"`
	Root     jsontext.Value `json:"root"`
}

func decodePart(raw jsontext.Value, unwrap bool) (Part, error) {
	if raw.Kind() != '{' {
		return nil, nil
	}
	var w wirePart
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	kind := w.Kind
	if kind == "" {
		kind = w.Type
	}
	switch PartKind(kind) {
	case PartKindText:
		return TextPart{Text: w.Text, Metadata: w.Metadata}, nil
	case PartKindData:
		return DataPart{Data: w.Data, Metadata: w.Metadata}, nil
	case PartKindFile:
		return FilePart{File: w.File, Metadata: w.Metadata}, nil
	}

	if unwrap && kind == "" && len(w.Root) > 0 {
		return decodePart(w.Root, false)
	}
	return nil, nil
}
