// Package proto defines the JSON wire protocol spoken between the AgisFL
// dashboard backend and its realtime clients. Every frame is a single
// Message envelope; the Type field determines how the rest is interpreted.
package proto

import (
	"encoding/json"
	"time"
)

// Client -> server command types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// Server -> client message types.
const (
	TypeUpdate       = "dashboard_update"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypePong         = "pong"
	TypeError        = "error"
)

// Well-known channels. Channel names are free-form strings; the broker
// creates channels on first subscribe, so this list is not exhaustive.
const (
	ChannelThreats       = "threats"
	ChannelIncidents     = "incidents"
	ChannelSystemMetrics = "system_metrics"
	ChannelFLRounds      = "fl_rounds"
)

type Message struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Text      string          `json:"message,omitempty"` // set on "error" frames
	Timestamp string          `json:"timestamp,omitempty"`

	// Sender is the originating session ID, injected by the server transport
	// so the coordinator can route replies. Never serialized.
	Sender string `json:"-"`
}

// NowTS returns the current UTC time in the RFC 3339 format used by every
// timestamped frame.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func Subscribe(channel string) Message {
	return Message{Type: TypeSubscribe, Channel: channel}
}

func Unsubscribe(channel string) Message {
	return Message{Type: TypeUnsubscribe, Channel: channel}
}

func Ping() Message {
	return Message{Type: TypePing}
}

func Pong() Message {
	return Message{Type: TypePong, Timestamp: NowTS()}
}

func Subscribed(channel string) Message {
	return Message{Type: TypeSubscribed, Channel: channel}
}

func Unsubscribed(channel string) Message {
	return Message{Type: TypeUnsubscribed, Channel: channel}
}

func Error(text string) Message {
	return Message{Type: TypeError, Text: text}
}

// Update builds a dashboard_update frame for channel, marshalling data into
// the payload.
func Update(channel string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:      TypeUpdate,
		Channel:   channel,
		Data:      raw,
		Timestamp: NowTS(),
	}, nil
}
