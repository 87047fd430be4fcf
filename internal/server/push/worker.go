package push

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
)

// Source delivers inbound events until ctx is done or the source closes.
type Source interface {
	Events(ctx context.Context) (<-chan Event, error)
}

// Sink applies outbound commands.
type Sink interface {
	Apply(ctx context.Context, cmd Command) error
}

// Recorder observes traffic through the worker.
type Recorder interface {
	PushEvent(kind string)
	PushCommand(kind string)
}

// MultiSink applies each command to every sink in order and joins errors.
type MultiSink []Sink

func (m MultiSink) Apply(ctx context.Context, cmd Command) error {
	var errs []error
	for _, s := range m {
		if err := s.Apply(ctx, cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Worker runs the handler over a stream of events.
type Worker struct {
	handler  *Handler
	sink     Sink
	logger   logging.Logger
	recorder Recorder
}

func NewWorker(h *Handler, sink Sink, logger logging.Logger, recorder Recorder) *Worker {
	return &Worker{
		handler:  h,
		sink:     sink,
		logger:   logger.With("module", "push"),
		recorder: recorder,
	}
}

// Run subscribes to src and processes events one at a time until ctx is
// cancelled or the stream ends. A failing command is logged and skipped.
func (w *Worker) Run(ctx context.Context, src Source) error {
	events, err := src.Events(ctx)
	if err != nil {
		return err
	}

	w.logger.Info(ctx, "push worker started")
	defer w.logger.Info(ctx, "push worker stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			w.Process(ctx, ev)
		}
	}
}

// Process handles a single event.
func (w *Worker) Process(ctx context.Context, ev Event) {
	if w.recorder != nil {
		w.recorder.PushEvent(string(ev.Type))
	}

	cmds := w.handler.Handle(ev)
	if len(cmds) == 0 {
		w.logger.Warn(ctx, "ignoring event", "type", ev.Type)
		return
	}

	for _, cmd := range cmds {
		if err := w.sink.Apply(ctx, cmd); err != nil {
			w.logger.Error(ctx, "apply command", "type", cmd.Type, "error", err)
			continue
		}
		if w.recorder != nil {
			w.recorder.PushCommand(string(cmd.Type))
		}
		w.logger.Debug(ctx, "command applied", "type", cmd.Type, "tag", cmd.Tag)
	}
}

// ChanSource adapts a plain channel.
type ChanSource <-chan Event

func (c ChanSource) Events(context.Context) (<-chan Event, error) {
	return c, nil
}
