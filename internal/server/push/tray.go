package push

import (
	"context"
	"slices"
	"sync"
)

// Tray keeps the set of visible notifications, one per tag, and remembers
// the windows that were opened. It stands in for the OS notification area.
type Tray struct {
	mu      sync.Mutex
	visible map[string]Notification
	order   []string
	opened  []string
}

func NewTray() *Tray {
	return &Tray{visible: make(map[string]Notification)}
}

func (t *Tray) Apply(_ context.Context, cmd Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch cmd.Type {
	case CommandShow:
		if cmd.Notification == nil {
			return nil
		}
		tag := cmd.Notification.Tag
		if _, ok := t.visible[tag]; ok {
			t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == tag })
		}
		t.visible[tag] = *cmd.Notification
		t.order = append(t.order, tag)
	case CommandDismiss:
		delete(t.visible, cmd.Tag)
		t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == cmd.Tag })
	case CommandOpenWindow:
		t.opened = append(t.opened, cmd.URL)
	}
	return nil
}

// Visible returns the shown notifications, oldest first.
func (t *Tray) Visible() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Notification, 0, len(t.order))
	for _, tag := range t.order {
		out = append(out, t.visible[tag])
	}
	return out
}

// Opened returns the URLs of windows opened so far.
func (t *Tray) Opened() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.opened)
}
