package push

import "github.com/dmitrijs2005/gophadmin/internal/server/models"

// EventType tells the handler which entry point an Event targets.
type EventType string

const (
	EventPush  EventType = "push"
	EventClick EventType = "click"
)

// Event is an inbound message. Push events carry Payload; click events carry
// the Tag of the clicked notification, the chosen Action (empty for a click
// on the body) and the Data that was attached when it was shown.
type Event struct {
	Type    EventType           `json:"type"`
	Payload *models.PushPayload `json:"payload,omitempty"`
	Tag     string              `json:"tag,omitempty"`
	Action  string              `json:"action,omitempty"`
	Data    map[string]string   `json:"data,omitempty"`
}

// CommandType names an outbound side effect.
type CommandType string

const (
	CommandShow       CommandType = "show"
	CommandDismiss    CommandType = "dismiss"
	CommandOpenWindow CommandType = "open_window"
)

// Command is an outbound message produced by the Handler.
type Command struct {
	Type         CommandType   `json:"type"`
	Notification *Notification `json:"notification,omitempty"`
	Tag          string        `json:"tag,omitempty"`
	URL          string        `json:"url,omitempty"`
}

// Action is a button offered on a notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is what a show command displays.
type Notification struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Icon    string            `json:"icon"`
	Tag     string            `json:"tag"`
	Actions []Action          `json:"actions"`
	Data    map[string]string `json:"data,omitempty"`
}
