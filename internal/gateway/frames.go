package gateway

import "encoding/json"

// clientFrame is the shape of every frame a client sends over the socket.
type clientFrame struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

const (
	actionSendMessage = "sendMessage"
	actionTyping      = "typing"
)

var supportedActions = []string{actionSendMessage, actionTyping}

type sendMessageData struct {
	Text string `json:"text"`
}

type typingData struct {
	IsTyping bool `json:"isTyping"`
}

type ackData struct {
	MessageID string `json:"messageId"`
	Sentiment int    `json:"sentiment"`
	Delivered int    `json:"delivered"`
}

type errorData struct {
	Reason           string   `json:"reason"`
	SupportedActions []string `json:"supportedActions,omitempty"`
}

type connectedData struct {
	ConnectionID string `json:"connectionId"`
}
