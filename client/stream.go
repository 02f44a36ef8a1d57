// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/bytedance/sonic"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/transport"
)

// Stream reads the events of a message/stream call.
//
// A Stream is not safe for concurrent use. It ends after the first final
// status update or when the agent closes the connection.
type Stream struct {
	body io.ReadCloser
	next func() (transport.Event, error, bool)
	stop func()
	err  error

	closeOnce sync.Once
	closeErr  error
}

func newStream(body io.ReadCloser) *Stream {
	next, stop := iter.Pull2(transport.ScanEvents(body))
	return &Stream{body: body, next: next, stop: stop}
}

// Recv returns the next event. It returns [io.EOF] once the stream is over
// and a [*a2a.JSONRPCError] if the agent reported a failure in band. A
// result that matches no event variant is returned as [*a2a.UnknownEvent].
func (s *Stream) Recv() (a2a.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	for {
		evt, err, ok := s.next()
		if !ok {
			s.err = io.EOF
			return nil, s.err
		}
		if err != nil {
			s.err = fmt.Errorf("read event stream: %w", err)
			return nil, s.err
		}
		if len(evt.Data) == 0 {
			continue
		}

		ev, err := decodeFrame(evt.Data)
		if err != nil {
			s.err = err
			return nil, err
		}
		if a2a.IsFinal(ev) {
			s.err = io.EOF
		}
		return ev, nil
	}
}

// All iterates over the remaining events. A terminating error other than
// [io.EOF] is yielded once as the last element.
func (s *Stream) All() iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		for {
			ev, err := s.Recv()
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the connection. The agent keeps working on the task.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.stop()
		s.closeErr = s.body.Close()
		if s.err == nil {
			s.err = io.EOF
		}
	})
	return s.closeErr
}

func decodeFrame(data []byte) (a2a.Event, error) {
	var raw a2a.RawJSONRPCResponse
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode stream frame: %w", err)
	}
	if raw.Error != nil {
		return nil, raw.Error
	}
	ev, err := a2a.DecodeEvent(raw.Result)
	if errors.Is(err, a2a.ErrUnknownEvent) {
		return &a2a.UnknownEvent{Raw: raw.Result.Clone()}, nil
	}
	return ev, err
}
