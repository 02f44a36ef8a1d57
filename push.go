// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"net/url"
	"slices"

	"github.com/go-json-experiment/json"
)

// PushNotificationAuthenticationInfo describes how the webhook expects to be authenticated.
type PushNotificationAuthenticationInfo struct {
	Schemes     []string `json:"schemes"`
	Credentials string   `json:"credentials,omitempty"`
}

// PushNotificationConfig is the webhook configuration of one task.
type PushNotificationConfig struct {
	ID             string                              `json:"id,omitempty"`
	URL            string                              `json:"url"`
	Token          string                              `json:"token,omitempty"`
	Authentication *PushNotificationAuthenticationInfo `json:"authentication,omitempty"`
}

// Validate ensures c carries an absolute http(s) URL.
func (c *PushNotificationConfig) Validate() error {
	if c == nil {
		return NewInvalidParamsError("pushNotificationConfig is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return NewInvalidParamsError("pushNotificationConfig.url must be an absolute http(s) URL: %q", c.URL)
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *PushNotificationConfig) Clone() *PushNotificationConfig {
	if c == nil {
		return nil
	}
	cc := *c
	if c.Authentication != nil {
		auth := *c.Authentication
		auth.Schemes = slices.Clone(c.Authentication.Schemes)
		cc.Authentication = &auth
	}
	return &cc
}

// TaskPushNotificationConfig binds a [PushNotificationConfig] to a task.
type TaskPushNotificationConfig struct {
	TaskID                 string                  `json:"taskId"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig"`
}

// UnmarshalJSON implements [json.Unmarshaler]. The task id may be sent as
// "taskId" or, by older clients, as "id".
func (c *TaskPushNotificationConfig) UnmarshalJSON(b []byte) error {
	var w struct {
		TaskID                 string                  `json:"taskId"`
		ID                     string                  `json:"id"`
		PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	c.TaskID = w.TaskID
	if c.TaskID == "" {
		c.TaskID = w.ID
	}
	c.PushNotificationConfig = w.PushNotificationConfig
	return nil
}

// Validate ensures c names a task and a usable webhook.
func (c *TaskPushNotificationConfig) Validate() error {
	if c == nil || c.TaskID == "" {
		return NewInvalidParamsError("taskId is required")
	}
	return c.PushNotificationConfig.Validate()
}
