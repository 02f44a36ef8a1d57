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

// Package transport implements the server-sent events framing used by
// message/stream.
//
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"

	"github.com/go-a2a/taskbridge/internal/pool"
)

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// MaxEventSize bounds a single line read by [ScanEvents].
const MaxEventSize = 4 << 20

// Event is one server-sent event.
type Event struct {
	Name string // "event" field; empty means "message"
	ID   string // "id" field
	Data []byte // "data" field, with multiple lines joined by '\n'
}

// Empty reports whether e carries nothing.
func (e Event) Empty() bool {
	return e.Name == "" && e.ID == "" && len(e.Data) == 0
}

// WriteEvent writes evt to w in wire format.
func WriteEvent(w io.Writer, evt Event) (int, error) {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	if evt.Name != "" {
		fmt.Fprintf(buf, "event: %s\n", evt.Name)
	}
	if evt.ID != "" {
		fmt.Fprintf(buf, "id: %s\n", evt.ID)
	}
	for line := range bytes.Lines(evt.Data) {
		buf.WriteString("data: ")
		buf.Write(bytes.TrimSuffix(line, []byte("\n")))
		buf.WriteByte('\n')
	}
	if len(evt.Data) == 0 {
		buf.WriteString("data: \n")
	}
	buf.WriteByte('\n')

	return w.Write(buf.Bytes())
}

// ScanEvents iterates over the events of r. Comment lines and unknown fields
// are ignored. Iteration stops at the end of r; a trailing event without a
// blank line is still yielded.
func ScanEvents(r io.Reader) iter.Seq2[Event, error] {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), MaxEventSize)

	return func(yield func(Event, error) bool) {
		var (
			evt     Event
			hasData bool
		)
		flush := func() bool {
			if evt.Empty() && !hasData {
				return true
			}
			ok := yield(evt, nil)
			evt, hasData = Event{}, false
			return ok
		}

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if !flush() {
					return
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}

			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				evt.Name = value
			case "id":
				evt.ID = value
			case "data":
				if hasData {
					evt.Data = append(evt.Data, '\n')
				}
				evt.Data = append(evt.Data, value...)
				hasData = true
			}
		}
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				err = fmt.Errorf("event exceeds %d bytes: %w", MaxEventSize, err)
			}
			yield(Event{}, err)
			return
		}
		flush()
	}
}

// Writer streams events to an HTTP response.
//
// The first write commits the response with the event stream headers. After
// a write fails, every later write returns the same error.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	err     error
}

// NewWriter creates a [Writer] on w.
func NewWriter(w http.ResponseWriter) *Writer {
	return &Writer{w: w, rc: http.NewResponseController(w)}
}

// Write sends evt.
func (sw *Writer) Write(evt Event) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.err != nil {
		return sw.err
	}
	if !sw.started {
		h := sw.w.Header()
		h.Set("Content-Type", ContentType)
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		sw.w.WriteHeader(http.StatusOK)
		sw.started = true
	}

	if _, err := WriteEvent(sw.w, evt); err != nil {
		sw.err = err
		return err
	}
	if err := sw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		sw.err = err
		return err
	}
	return nil
}

// Started reports whether the response was committed.
func (sw *Writer) Started() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.started
}
