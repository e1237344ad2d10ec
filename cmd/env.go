package main

import (
	"context"
	"path"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoplot/internal/boundary"
	"github.com/sells-group/geoplot/internal/config"
	"github.com/sells-group/geoplot/internal/dataset"
	"github.com/sells-group/geoplot/internal/fetcher"
	"github.com/sells-group/geoplot/internal/render"
	"github.com/sells-group/geoplot/internal/session"
	"github.com/sells-group/geoplot/internal/store"
)

// mapEnv holds the components shared by render and serve.
type mapEnv struct {
	Opener  *fetcher.Opener
	Loader  *boundary.Loader
	Session *session.Session
	Render  render.Options
	cache   boundary.Cache
}

// Close releases the boundary cache connection, if any.
func (e *mapEnv) Close() {
	if c, ok := e.cache.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			zap.L().Warn("close boundary cache", zap.Error(err))
		}
	}
}

// initMapEnv wires fetcher, cache, loader and session from cfg.
func initMapEnv(c *config.Config, obs session.Observer) (*mapEnv, error) {
	renderOpts, err := render.OptionsFromConfig(c.Render)
	if err != nil {
		return nil, err
	}

	cache, err := boundary.NewCache(c.Boundary)
	if err != nil {
		return nil, err
	}

	opener := fetcher.NewOpener(
		fetcher.HTTPOptions{
			UserAgent:  c.Boundary.UserAgent,
			Timeout:    time.Duration(c.Boundary.TimeoutSecs) * time.Second,
			MaxRetries: c.Boundary.MaxRetries,
		},
		fetcher.FTPOptions{
			Timeout: time.Duration(c.Boundary.TimeoutSecs) * time.Second,
		},
	)
	loader := boundary.NewLoader(opener, cache, c.Boundary.TempDir)

	sess := session.New(loader, session.Options{
		Render:          renderOpts,
		PNGWidth:        c.Render.PNG.Width,
		PNGHeight:       c.Render.PNG.Height,
		DefaultBoundary: c.Boundary.DefaultURL,
		Observer:        obs,
	})

	return &mapEnv{Opener: opener, Loader: loader, Session: sess, Render: renderOpts, cache: cache}, nil
}

// loadDataset reads a dataset from a local path or URL.
func (e *mapEnv) loadDataset(ctx context.Context, src string) (*dataset.Table, error) {
	rc, err := e.Opener.Open(ctx, src)
	if err != nil {
		return nil, eris.Wrapf(err, "open dataset %s", src)
	}
	defer rc.Close()
	return dataset.Load(ctx, path.Base(src), rc)
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}
