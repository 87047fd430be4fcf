package push

import (
	"maps"

	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

const (
	DefaultTitle = "New notification"
	DefaultBody  = "You have a new notification"
	DefaultIcon  = "/assets/icons/icon-192x192.png"
	DefaultTag   = "default-notification"

	ActionOpen  = "open"
	ActionClose = "close"

	tagPrefix = "notification-"
)

// BuildNotification fills in defaults for a payload. Notifications sharing a
// data id share a tag, so a newer one replaces the older one.
func BuildNotification(p models.PushPayload) Notification {
	n := Notification{
		Title: DefaultTitle,
		Body:  DefaultBody,
		Icon:  DefaultIcon,
		Tag:   DefaultTag,
		Actions: []Action{
			{Action: ActionOpen, Title: "Open"},
			{Action: ActionClose, Title: "Close"},
		},
		Data: maps.Clone(p.Data),
	}
	if p.Notification != nil {
		if p.Notification.Title != "" {
			n.Title = p.Notification.Title
		}
		if p.Notification.Body != "" {
			n.Body = p.Notification.Body
		}
		if p.Notification.Icon != "" {
			n.Icon = p.Notification.Icon
		}
	}
	if id := p.Data["id"]; id != "" {
		n.Tag = tagPrefix + id
	}
	return n
}

// Handler maps events to commands. It holds no mutable state.
type Handler struct {
	appURL string
}

// NewHandler returns a Handler that opens appURL on notification clicks.
func NewHandler(appURL string) *Handler {
	if appURL == "" {
		appURL = "/"
	}
	return &Handler{appURL: appURL}
}

// Handle returns the commands for ev, in the order they must be applied.
// Unknown event types yield nothing.
func (h *Handler) Handle(ev Event) []Command {
	switch ev.Type {
	case EventPush:
		var p models.PushPayload
		if ev.Payload != nil {
			p = *ev.Payload
		}
		n := BuildNotification(p)
		return []Command{{Type: CommandShow, Notification: &n}}

	case EventClick:
		cmds := []Command{{Type: CommandDismiss, Tag: ev.Tag}}
		if ev.Action != ActionClose {
			cmds = append(cmds, Command{Type: CommandOpenWindow, URL: h.appURL})
		}
		return cmds
	}
	return nil
}
