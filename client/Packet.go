// Package client implements a Socket.IO client for the TrustPVP game
// server: the engine.io v4 websocket transport, the Socket.IO packet
// framing on top of it, and the game's event protocol.
package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// engine.io v4 packet types. Each websocket text frame carries exactly
// one engine.io packet: the type byte followed by the payload.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
)

// Socket.IO packet types, carried inside engine.io message packets
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'
)

// handshake is the payload of the engine.io open packet
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"` // Milliseconds
	PingTimeout  int    `json:"pingTimeout"`  // Milliseconds
}

// event is a decoded Socket.IO EVENT packet: the event name and its
// still-encoded arguments.
type event struct {
	Name string
	Args []json.RawMessage
}

// encodeEvent frames an event emission as an engine.io message
// carrying a Socket.IO EVENT packet on the default namespace, e.g.
// "42[\"login\",{...}]".
func encodeEvent(name string, args ...interface{}) (string, error) {
	payload := make([]interface{}, 0, len(args)+1)
	payload = append(payload, name)
	payload = append(payload, args...)

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encodeevent: could not marshal %v: %v",
			name, err)
	}
	return string([]byte{engineMessage, socketEvent}) + string(data), nil
}

// encodeConnect frames the Socket.IO CONNECT request for the default
// namespace.
func encodeConnect() string {
	return string([]byte{engineMessage, socketConnect})
}

// decodeEvent parses a Socket.IO EVENT payload, the JSON array
// following the "42" prefix. The first element is the event name; the
// rest are its arguments.
func decodeEvent(payload string) (event, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &parts); err != nil {
		return event{}, fmt.Errorf("decodeevent: malformed payload: %v", err)
	}
	if len(parts) == 0 {
		return event{}, fmt.Errorf("decodeevent: empty event array")
	}

	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return event{}, fmt.Errorf("decodeevent: malformed event name: %v",
			err)
	}
	return event{Name: name, Args: parts[1:]}, nil
}

// decodeHandshake parses the engine.io open packet's payload
func decodeHandshake(payload string) (handshake, error) {
	var h handshake
	if err := json.Unmarshal([]byte(payload), &h); err != nil {
		return handshake{}, fmt.Errorf("decodehandshake: %v", err)
	}
	if h.SID == "" {
		return handshake{}, fmt.Errorf("decodehandshake: missing session id")
	}
	return h, nil
}

// endpointURL converts a server URL into the engine.io v4 websocket
// endpoint, e.g. "http://host:8080" into
// "ws://host:8080/socket.io/?EIO=4&transport=websocket".
func endpointURL(serverURL string) string {
	url := serverURL
	switch {
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	}
	url = strings.TrimSuffix(url, "/")
	return url + "/socket.io/?EIO=4&transport=websocket"
}
