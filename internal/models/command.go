package models

import (
	"errors"
	"net/url"
	"strings"
)

// ErrMissingField is returned by ParseCommandRequest when a required slash-command
// field is absent or empty. Callers should treat this as "unsupported request" and
// never echo the internal detail back to the chat platform.
var ErrMissingField = errors.New("missing required slash-command field")

// requiredCommandFields is the set of fields Slack always sends with a slash
// command. Everything arrives form-encoded as a one-element list.
var requiredCommandFields = []string{
	"token",
	"api_app_id",
	"team_id",
	"team_domain",
	"channel_id",
	"channel_name",
	"command",
	"user_id",
	"user_name",
	"response_url",
}

// CommandRequest is the parsed inbound slash-command payload. It is immutable
// once parsed; the raw form values are retained so the exact field set (minus
// secrets) can be forwarded to a worker.
type CommandRequest struct {
	Token       string
	APIAppID    string
	TeamID      string
	TeamDomain  string
	ChannelID   string
	ChannelName string
	UserID      string
	UserName    string
	Command     string
	Text        string // optional; empty means the help path
	ResponseURL string

	raw url.Values
}

// ParseCommandRequest validates the form-encoded slash-command body and builds a
// CommandRequest. Structurally invalid input (any required field missing or
// empty) is rejected at this boundary with ErrMissingField.
func ParseCommandRequest(values url.Values) (*CommandRequest, error) {
	for _, field := range requiredCommandFields {
		if values.Get(field) == "" {
			return nil, ErrMissingField
		}
	}

	return &CommandRequest{
		Token:       values.Get("token"),
		APIAppID:    values.Get("api_app_id"),
		TeamID:      values.Get("team_id"),
		TeamDomain:  values.Get("team_domain"),
		ChannelID:   values.Get("channel_id"),
		ChannelName: values.Get("channel_name"),
		Command:     values.Get("command"),
		UserID:      values.Get("user_id"),
		UserName:    values.Get("user_name"),
		Text:        values.Get("text"),
		ResponseURL: values.Get("response_url"),
		raw:         values,
	}, nil
}

// WorkerPayload returns a copy of the parsed fields with the verification token
// and trigger id stripped. This is the only shape that may leave the gateway.
func (c *CommandRequest) WorkerPayload() url.Values {
	payload := url.Values{}
	for key, vals := range c.raw {
		if key == "token" || key == "trigger_id" {
			continue
		}
		payload[key] = append([]string(nil), vals...)
	}
	return payload
}

// FirstTextToken returns the first whitespace-delimited token of the command
// text, lower-cased. Empty text yields "".
func (c *CommandRequest) FirstTextToken() string {
	fields := strings.Fields(c.Text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
