// Package push is the background notification handler. It runs apart from
// the HTTP process and talks to it only through messages: inbound Events
// (a push arrived, a notification was clicked) are turned into outbound
// Commands (show, dismiss, open a window) by a pure Handler, and a Worker
// pumps events from a Source into a Sink.
package push
