package slack

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lithammer/shortuuid/v4"

	"github.com/tzrikka/herald/pkg/events"
)

// Outer Events API payload types.
// See https://docs.slack.dev/apis/events-api#callback-field.
const (
	TypeURLVerification = "url_verification"
	TypeEventCallback   = "event_callback"
)

var ErrUnexpectedPayload = errors.New("unexpected Events API payload")

// DecodeBody parses the JSON body of an Events API request or Socket Mode message.
func DecodeBody(raw []byte) (map[string]any, error) {
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedPayload, err)
	}
	return m, nil
}

// Challenge returns the challenge value of a [URL verification] request.
//
// [URL verification]: https://docs.slack.dev/reference/events/url_verification
func Challenge(body map[string]any) (string, bool) {
	if body["type"] != TypeURLVerification {
		return "", false
	}
	c, ok := body["challenge"].(string)
	return c, ok
}

// EnvelopeFromBody extracts the inner event of an "event_callback" payload.
// The envelope's ID is Slack's event ID, or a new short UUID if it's missing.
func EnvelopeFromBody(body map[string]any) (events.Envelope, error) {
	if t := body["type"]; t != TypeEventCallback {
		return events.Envelope{}, fmt.Errorf("%w: type %v", ErrUnexpectedPayload, t)
	}

	inner, ok := body["event"].(map[string]any)
	if !ok {
		return events.Envelope{}, fmt.Errorf("%w: missing inner event", ErrUnexpectedPayload)
	}

	t, _ := inner["type"].(string)
	if t == "" {
		return events.Envelope{}, fmt.Errorf("%w: missing inner event type", ErrUnexpectedPayload)
	}

	id, _ := body["event_id"].(string)
	if id == "" {
		id = shortuuid.New()
	}

	return events.Envelope{ID: id, Type: t, Payload: inner}, nil
}
