package push

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

// Dispatcher delivers a payload to a set of device tokens and reports how
// many deliveries succeeded.
type Dispatcher interface {
	Send(ctx context.Context, tokens []string, p models.PushPayload) (int, error)
}

// ErrNoDevices is returned when there is nobody to deliver to.
var ErrNoDevices = errors.New("no device tokens")

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMDispatcher sends web push messages through Firebase Cloud Messaging.
// Notification fields are built the same way the worker builds them, so a
// browser receiving the message shows the same title, tag and actions.
type FCMDispatcher struct {
	client multicastSender
	appURL string
	logger logging.Logger
}

func NewFCMDispatcher(client *messaging.Client, appURL string, logger logging.Logger) *FCMDispatcher {
	return newFCMDispatcher(client, appURL, logger)
}

func newFCMDispatcher(client multicastSender, appURL string, logger logging.Logger) *FCMDispatcher {
	return &FCMDispatcher{client: client, appURL: appURL, logger: logger.With("module", "fcm")}
}

func (d *FCMDispatcher) Send(ctx context.Context, tokens []string, p models.PushPayload) (int, error) {
	if len(tokens) == 0 {
		return 0, ErrNoDevices
	}

	resp, err := d.client.SendEachForMulticast(ctx, d.message(tokens, p))
	if err != nil {
		return 0, fmt.Errorf("fcm send: %w", err)
	}
	for i, r := range resp.Responses {
		if r != nil && !r.Success && i < len(tokens) {
			d.logger.Warn(ctx, "delivery failed", "token_index", i, "error", r.Error)
		}
	}
	return resp.SuccessCount, nil
}

func (d *FCMDispatcher) message(tokens []string, p models.PushPayload) *messaging.MulticastMessage {
	n := BuildNotification(p)

	actions := make([]*messaging.WebpushNotificationAction, 0, len(n.Actions))
	for _, a := range n.Actions {
		actions = append(actions, &messaging.WebpushNotificationAction{Action: a.Action, Title: a.Title})
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   n.Data,
		Webpush: &messaging.WebpushConfig{
			Data: n.Data,
			Notification: &messaging.WebpushNotification{
				Title:   n.Title,
				Body:    n.Body,
				Icon:    n.Icon,
				Tag:     n.Tag,
				Actions: actions,
			},
			FCMOptions: &messaging.WebpushFCMOptions{Link: d.appURL},
		},
	}
}

// EventPublisher is the write side of the worker bus. Publish returns the
// number of workers that received the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) (int64, error)
}

// BusDispatcher hands payloads straight to the worker over the bus. It is
// used when no managed push service is configured.
type BusDispatcher struct {
	bus EventPublisher
}

func NewBusDispatcher(bus EventPublisher) *BusDispatcher {
	return &BusDispatcher{bus: bus}
}

// Send publishes one push event. The worker's tray stands in for every
// device, so a received event counts all tokens; with no worker listening
// nothing is delivered.
func (d *BusDispatcher) Send(ctx context.Context, tokens []string, p models.PushPayload) (int, error) {
	if len(tokens) == 0 {
		return 0, ErrNoDevices
	}
	n, err := d.bus.Publish(ctx, Event{Type: EventPush, Payload: &p})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return len(tokens), nil
}
