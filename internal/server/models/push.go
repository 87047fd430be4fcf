package models

// PushNotification is the visible part of a push message.
type PushNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// PushPayload is what the delivery service hands to the background handler.
// Data is forwarded verbatim into the displayed notification and back out on
// click; its "id" key identifies the logical event.
type PushPayload struct {
	Notification *PushNotification `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// DeviceToken is a push registration belonging to one user.
type DeviceToken struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Platform string `json:"platform,omitempty"`
}
