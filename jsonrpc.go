// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// JSONRPCVersion is the value of the "jsonrpc" member of every envelope.
const JSONRPCVersion = "2.0"

// JSON-RPC method names.
const (
	MethodMessageSend      = "message/send"
	MethodMessageStream    = "message/stream"
	MethodTasksGet         = "tasks/get"
	MethodTasksCancel      = "tasks/cancel"
	MethodPushConfigSet    = "tasks/pushNotificationConfig/set"
	MethodPushConfigGet    = "tasks/pushNotificationConfig/get"
	MethodPushConfigDelete = "tasks/pushNotificationConfig/delete"
)

// Standard JSON-RPC 2.0 error codes.
const (
	JSONParseErrorCode      = -32700
	InvalidRequestErrorCode = -32600
	MethodNotFoundErrorCode = -32601
	InvalidParamsErrorCode  = -32602
	InternalErrorCode       = -32603
)

// A2A specific error codes.
const (
	TaskNotFoundErrorCode                 = -32001
	TaskNotCancelableErrorCode            = -32002
	PushNotificationNotSupportedErrorCode = -32003
	UnsupportedOperationErrorCode         = -32004
	ContentTypeNotSupportedErrorCode      = -32005
)

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id,omitzero"`
	Method  string         `json:"method"`
	Params  jsontext.Value `json:"params,omitzero"`
}

// NewJSONRPCRequest encodes params into a request with a string id.
func NewJSONRPCRequest(id, method string, params any) (*JSONRPCRequest, error) {
	rawID, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	req := &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      rawID,
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode %s params: %w", method, err)
		}
		req.Params = raw
	}
	return req, nil
}

// JSONRPCError is the error member of a JSON-RPC 2.0 response.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements error.
func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Is maps wire codes back onto the error kinds so that clients can use
// [errors.Is] on decoded responses.
func (e *JSONRPCError) Is(target error) bool {
	switch e.Code {
	case InvalidParamsErrorCode:
		return target == ErrInvalidParams
	case TaskNotFoundErrorCode:
		return target == ErrNotFound
	case TaskNotCancelableErrorCode:
		return target == ErrInvalidTransition
	case UnsupportedOperationErrorCode:
		return target == ErrUnsupportedOperation
	case PushNotificationNotSupportedErrorCode:
		return target == ErrPushNotificationNotSupported
	case InternalErrorCode:
		return target == ErrInternal
	case InvalidRequestErrorCode:
		return target == ErrTaskBusy && e.Message == taskBusyMessage
	}
	return false
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id"`
	Result  any            `json:"result,omitzero"`
	Error   *JSONRPCError  `json:"error,omitempty"`
}

// RawJSONRPCResponse is a response whose result is left undecoded.
type RawJSONRPCResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id"`
	Result  jsontext.Value `json:"result,omitzero"`
	Error   *JSONRPCError  `json:"error,omitempty"`
}

// NewParseError creates a -32700 error.
func NewParseError(err error) *JSONRPCError {
	return &JSONRPCError{Code: JSONParseErrorCode, Message: "Invalid JSON payload", Data: errString(err)}
}

// NewInvalidRequestError creates a -32600 error.
func NewInvalidRequestError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: InvalidRequestErrorCode, Message: "Request payload validation error", Data: detail}
}

const taskBusyMessage = "Task is busy"

// NewTaskBusyError creates the -32600 error for a message sent to a task
// whose agent has not finished its turn.
func NewTaskBusyError(detail string) *JSONRPCError {
	return &JSONRPCError{Code: InvalidRequestErrorCode, Message: taskBusyMessage, Data: detail}
}

// NewMethodNotFoundError creates a -32601 error.
func NewMethodNotFoundError(method string) *JSONRPCError {
	return &JSONRPCError{Code: MethodNotFoundErrorCode, Message: "Method not found", Data: method}
}

// ToJSONRPCError maps err onto its wire representation.
func ToJSONRPCError(err error) *JSONRPCError {
	var rpcErr *JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	switch {
	case errors.Is(err, ErrInvalidParams):
		return &JSONRPCError{Code: InvalidParamsErrorCode, Message: "Invalid parameters", Data: err.Error()}
	case errors.As(err, new(PushConfigNotFoundError)):
		return &JSONRPCError{Code: TaskNotFoundErrorCode, Message: "Push notification config not found", Data: err.Error()}
	case errors.Is(err, ErrNotFound):
		return &JSONRPCError{Code: TaskNotFoundErrorCode, Message: "Task not found", Data: err.Error()}
	case errors.Is(err, ErrInvalidTransition):
		return &JSONRPCError{Code: TaskNotCancelableErrorCode, Message: "Task cannot be updated", Data: err.Error()}
	case errors.Is(err, ErrUnsupportedOperation):
		return &JSONRPCError{Code: UnsupportedOperationErrorCode, Message: "This operation is not supported", Data: err.Error()}
	case errors.Is(err, ErrPushNotificationNotSupported):
		return &JSONRPCError{Code: PushNotificationNotSupportedErrorCode, Message: "Push Notification is not supported"}
	case errors.Is(err, ErrTaskBusy):
		return NewTaskBusyError(err.Error())
	default:
		return &JSONRPCError{Code: InternalErrorCode, Message: "Internal error", Data: errString(err)}
	}
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// MessageSendConfiguration tunes a message/send or message/stream call.
type MessageSendConfiguration struct {
	AcceptedOutputModes    []string                `json:"acceptedOutputModes,omitempty"`
	HistoryLength          *int                    `json:"historyLength,omitempty"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitempty"`
	Blocking               *bool                   `json:"blocking,omitempty"`
}

// MessageSendParams are the params of message/send and message/stream.
type MessageSendParams struct {
	Message       *Message                  `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
	Metadata      map[string]any            `json:"metadata,omitempty"`
}

// Validate ensures p can be dispatched.
func (p *MessageSendParams) Validate() error {
	if p == nil {
		return NewInvalidParamsError("params are required")
	}
	if err := p.Message.Validate(); err != nil {
		return err
	}
	if cfg := p.Configuration; cfg != nil && cfg.PushNotificationConfig != nil {
		return cfg.PushNotificationConfig.Validate()
	}
	return nil
}

// TaskQueryParams are the params of tasks/get.
type TaskQueryParams struct {
	ID            string `json:"id"`
	HistoryLength *int   `json:"historyLength,omitempty"`
}

// Validate ensures p names a task.
func (p *TaskQueryParams) Validate() error {
	if p == nil || p.ID == "" {
		return NewInvalidParamsError("id is required")
	}
	return nil
}

// TaskIDParams are the params of tasks/cancel and the push config getters.
type TaskIDParams struct {
	ID string `json:"id"`
}

// Validate ensures p names a task.
func (p *TaskIDParams) Validate() error {
	if p == nil || p.ID == "" {
		return NewInvalidParamsError("id is required")
	}
	return nil
}
