// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import "github.com/go-a2a/taskbridge/internal/pool"

// ExtractText joins the text of every [TextPart] in parts with newlines.
//
// Parts of any other kind are ignored. An empty result is valid.
func ExtractText(parts []Part) string {
	sb := pool.String.Get()
	defer pool.String.Put(sb)

	n := 0
	for _, p := range parts {
		if tp, ok := p.(TextPart); ok {
			if n > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(tp.Text)
			n++
		}
	}
	return sb.String()
}

// TextOf extracts human-readable text from any protocol value that carries it.
//
// A plain string is returned unchanged, so extracting twice is a no-op.
// Unsupported values yield the empty string.
func TextOf(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case Part:
		return ExtractText([]Part{v})
	case []Part:
		return ExtractText(v)
	case Parts:
		return ExtractText(v)
	case *Message:
		return v.Text()
	case *Artifact:
		return v.Text()
	case TaskStatus:
		return v.Message.Text()
	case *TaskStatus:
		if v == nil {
			return ""
		}
		return v.Message.Text()
	case *TaskStatusUpdateEvent:
		if v == nil {
			return ""
		}
		return v.Status.Message.Text()
	case *TaskArtifactUpdateEvent:
		if v == nil {
			return ""
		}
		return v.Artifact.Text()
	case *Task:
		if v == nil {
			return ""
		}
		return v.Status.Message.Text()
	default:
		return ""
	}
}
