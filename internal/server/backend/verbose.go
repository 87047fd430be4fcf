package backend

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/auth"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/dmitrijs2005/gophadmin/internal/server/push"
	"github.com/dmitrijs2005/gophadmin/internal/server/upload"
)

type verboseVerifier struct {
	next   auth.Verifier
	logger logging.Logger
}

func (v *verboseVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	start := time.Now()
	id, err := v.next.Verify(ctx, token)
	v.logger.Debug(ctx, "verify token", "duration", time.Since(start), "error", err)
	return id, err
}

type verboseStore struct {
	next   upload.ObjectStore
	logger logging.Logger
}

func (s *verboseStore) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error {
	start := time.Now()
	err := s.next.Put(ctx, key, body, size, contentType)
	s.logger.Debug(ctx, "object put", "key", key, "size", size, "duration", time.Since(start), "error", err)
	return err
}

func (s *verboseStore) URL(ctx context.Context, key string) (string, error) {
	u, err := s.next.URL(ctx, key)
	s.logger.Debug(ctx, "object url", "key", key, "error", err)
	return u, err
}

func (s *verboseStore) Delete(ctx context.Context, key string) error {
	err := s.next.Delete(ctx, key)
	s.logger.Debug(ctx, "object delete", "key", key, "error", err)
	return err
}

func (s *verboseStore) KeyFromURL(rawURL string) (string, error) {
	return s.next.KeyFromURL(rawURL)
}

type verboseDispatcher struct {
	next   push.Dispatcher
	logger logging.Logger
}

func (d *verboseDispatcher) Send(ctx context.Context, tokens []string, p models.PushPayload) (int, error) {
	n, err := d.next.Send(ctx, tokens, p)
	d.logger.Debug(ctx, "push send", "devices", len(tokens), "delivered", n, "error", err)
	return n, err
}
