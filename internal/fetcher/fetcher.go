// Package fetcher retrieves boundary and dataset sources over HTTP, FTP, or
// the local filesystem.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote source. The caller closes the returned body.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Opener resolves a source reference to a readable stream. Plain paths and
// file:// URLs are read from disk; http(s) and ftp go through the matching
// Fetcher.
type Opener struct {
	HTTP Fetcher
	FTP  Fetcher
	// Breaker configures the per-host circuit breakers for remote sources.
	Breaker BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewOpener builds an Opener with the default HTTP and FTP fetchers.
func NewOpener(httpOpts HTTPOptions, ftpOpts FTPOptions) *Opener {
	return &Opener{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// Scheme reports the lowercase scheme of src, or "file" for plain paths.
func Scheme(src string) string {
	u, err := url.Parse(src)
	if err != nil || len(u.Scheme) <= 1 {
		// Windows drive letters parse as one-letter schemes.
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// Open returns a reader for src. The caller must close it.
func (o *Opener) Open(ctx context.Context, src string) (io.ReadCloser, error) {
	switch Scheme(src) {
	case "http", "https":
		if o.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher configured for %s", src)
		}
		return o.remote(ctx, src, o.HTTP)
	case "ftp":
		if o.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher configured for %s", src)
		}
		return o.remote(ctx, src, o.FTP)
	case "file":
		path := strings.TrimPrefix(src, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		return f, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported source scheme %q", Scheme(src))
	}
}

func (o *Opener) remote(ctx context.Context, src string, f Fetcher) (io.ReadCloser, error) {
	b := o.breakerFor(src)
	if err := b.Allow(); err != nil {
		return nil, err
	}
	rc, err := f.Download(ctx, src)
	if ctx.Err() == nil {
		// Caller cancellation says nothing about the host.
		b.Record(err)
	}
	return rc, err
}

// breakerFor returns the breaker for src's host, creating it on first use.
func (o *Opener) breakerFor(src string) *Breaker {
	host := src
	if u, err := url.Parse(src); err == nil && u.Host != "" {
		host = u.Host
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.breakers == nil {
		o.breakers = make(map[string]*Breaker)
	}
	b, ok := o.breakers[host]
	if !ok {
		b = NewBreaker(host, o.Breaker)
		o.breakers[host] = b
	}
	return b
}

// OpenToFile streams src into a new file at path and returns bytes written.
// A partial file is removed on failure.
func (o *Opener) OpenToFile(ctx context.Context, src, path string) (int64, error) {
	rc, err := o.Open(ctx, src)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	n, err := io.Copy(file, rc)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return n, nil
}
