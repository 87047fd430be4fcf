package push

import (
	"testing"

	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNotification_Defaults(t *testing.T) {
	n := BuildNotification(models.PushPayload{})

	want := Notification{
		Title: DefaultTitle,
		Body:  DefaultBody,
		Icon:  DefaultIcon,
		Tag:   DefaultTag,
		Actions: []Action{
			{Action: ActionOpen, Title: "Open"},
			{Action: ActionClose, Title: "Close"},
		},
	}
	if diff := cmp.Diff(want, n); diff != "" {
		t.Errorf("BuildNotification mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildNotification_FromPayload(t *testing.T) {
	data := map[string]string{"id": "42", "kind": "order"}
	n := BuildNotification(models.PushPayload{
		Notification: &models.PushNotification{Title: "Order shipped", Icon: "/i.png"},
		Data:         data,
	})

	assert.Equal(t, "Order shipped", n.Title)
	assert.Equal(t, DefaultBody, n.Body)
	assert.Equal(t, "/i.png", n.Icon)
	assert.Equal(t, "notification-42", n.Tag)
	assert.Equal(t, data, n.Data)

	data["kind"] = "mutated"
	assert.Equal(t, "order", n.Data["kind"], "data is copied")
}

func TestHandle_Push(t *testing.T) {
	h := NewHandler("https://admin.example/")

	cmds := h.Handle(Event{Type: EventPush, Payload: &models.PushPayload{Data: map[string]string{"id": "7"}}})
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandShow, cmds[0].Type)
	require.NotNil(t, cmds[0].Notification)
	assert.Equal(t, "notification-7", cmds[0].Notification.Tag)

	cmds = h.Handle(Event{Type: EventPush})
	require.Len(t, cmds, 1)
	assert.Equal(t, DefaultTag, cmds[0].Notification.Tag)
}

func TestHandle_Click(t *testing.T) {
	h := NewHandler("https://admin.example/")

	tests := []struct {
		name   string
		action string
		want   []Command
	}{
		{
			name:   "open",
			action: ActionOpen,
			want: []Command{
				{Type: CommandDismiss, Tag: "notification-1"},
				{Type: CommandOpenWindow, URL: "https://admin.example/"},
			},
		},
		{
			name:   "body click",
			action: "",
			want: []Command{
				{Type: CommandDismiss, Tag: "notification-1"},
				{Type: CommandOpenWindow, URL: "https://admin.example/"},
			},
		},
		{
			name:   "close",
			action: ActionClose,
			want:   []Command{{Type: CommandDismiss, Tag: "notification-1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Handle(Event{Type: EventClick, Tag: "notification-1", Action: tt.action})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandle_Unknown(t *testing.T) {
	assert.Nil(t, NewHandler("").Handle(Event{Type: "bogus"}))
}

func TestNewHandler_DefaultRoot(t *testing.T) {
	cmds := NewHandler("").Handle(Event{Type: EventClick})
	require.Len(t, cmds, 2)
	assert.Equal(t, "/", cmds[1].URL)
}
