package upload

import (
	"context"
	"io"
)

// ObjectStore is the remote blob storage the service writes to.
type ObjectStore interface {
	// Put writes body under key.
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	// URL returns the durable download URL of an existing object.
	URL(ctx context.Context, key string) (string, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
	// KeyFromURL resolves a URL previously returned by URL back to its key.
	KeyFromURL(rawURL string) (string, error)
}

// ProgressFunc observes upload progress in bytes.
type ProgressFunc func(key string, written, total int64)

// progressReader reports bytes read from r. Seeking back to the start (as
// request signing and retries do) resets the count.
type progressReader struct {
	r        io.ReadSeeker
	key      string
	total    int64
	written  int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.progress(p.key, p.written, p.total)
	}
	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil {
		p.written = pos
	}
	return pos, err
}
