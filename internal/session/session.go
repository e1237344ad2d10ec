// Package session holds the single in-process map-editing state: the loaded
// dataset and boundaries, the current mapping configuration and the last
// rendered scene. All transitions are whole-value replacements under a
// mutex, so callers never observe a partially updated session.
package session

import (
	"context"
	"io"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoplot/internal/boundary"
	"github.com/sells-group/geoplot/internal/dataset"
	"github.com/sells-group/geoplot/internal/export"
	"github.com/sells-group/geoplot/internal/mapping"
	"github.com/sells-group/geoplot/internal/render"
)

// ErrNothingRendered is returned by Export before the first successful redraw.
var ErrNothingRendered = eris.New("session: nothing has been rendered yet")

// Format selects an export encoding.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// BoundaryLoader resolves and parses boundary sources.
type BoundaryLoader interface {
	Load(ctx context.Context, src string) (*boundary.FeatureSet, error)
	Parse(name string, r io.Reader) (*boundary.FeatureSet, error)
}

// Observer receives session events. Implementations must not call back into
// the session.
type Observer interface {
	DatasetLoaded(rows int)
	BoundariesLoaded(features int)
	Rendered(scene *render.Scene)
	RenderFailed(err error)
}

// Options configure a Session.
type Options struct {
	Render          render.Options
	PNGWidth        int
	PNGHeight       int
	DefaultBoundary string
	Observer        Observer
}

// Session is the Record Store plus the current configuration.
type Session struct {
	mu sync.Mutex

	loader BoundaryLoader
	opts   Options

	table      *dataset.Table
	boundaries *boundary.FeatureSet
	cfg        mapping.Config
	scene      *render.Scene
}

// New creates an empty session with the default mapping configuration.
func New(loader BoundaryLoader, opts Options) *Session {
	return &Session{
		loader: loader,
		opts:   opts,
		cfg:    mapping.Default(),
	}
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Config       mapping.Config `json:"config"`
	Columns      []string       `json:"columns"`
	Rows         int            `json:"rows"`
	DatasetName  string         `json:"dataset_name,omitempty"`
	PropertyKeys []string       `json:"property_keys"`
	Features     int            `json:"features"`
	Boundary     string         `json:"boundary_source,omitempty"`
	Rendered     bool           `json:"rendered"`
}

// Snapshot returns the current state summary.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Config:   s.cfg,
		Rows:     s.table.Len(),
		Features: s.boundaries.Len(),
		Rendered: s.scene != nil,
	}
	if s.table != nil {
		snap.Columns = append([]string(nil), s.table.Columns...)
		snap.DatasetName = s.table.Name
	}
	if s.boundaries != nil {
		snap.PropertyKeys = append([]string(nil), s.boundaries.PropertyKeys...)
		snap.Boundary = s.boundaries.Source
	}
	return snap
}

// Config returns the current mapping configuration.
func (s *Session) Config() mapping.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// ReplaceConfig validates cfg and makes it current. An invalid cfg leaves
// the session unchanged.
func (s *Session) ReplaceConfig(cfg mapping.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// PatchConfig applies p to the current configuration atomically.
func (s *Session) PatchConfig(p mapping.Patch) (mapping.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Apply(p)
	if err := next.Validate(); err != nil {
		return s.cfg, err
	}
	s.cfg = next
	return next, nil
}

// SetDataset installs an already parsed table and resets column selections.
func (s *Session) SetDataset(t *dataset.Table) {
	s.mu.Lock()
	s.table = t
	s.cfg = s.cfg.WithDatasetDefaults(t)
	s.mu.Unlock()

	if s.opts.Observer != nil {
		s.opts.Observer.DatasetLoaded(t.Len())
	}
}

// LoadDataset parses an upload and, only on success, replaces the dataset.
func (s *Session) LoadDataset(ctx context.Context, name string, r io.Reader) (*dataset.Table, error) {
	t, err := dataset.Load(ctx, name, r)
	if err != nil {
		zap.L().Warn("session: dataset upload rejected", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	s.SetDataset(t)
	return t, nil
}

// SetBoundaries installs a parsed feature set and resets the join-key property.
func (s *Session) SetBoundaries(fs *boundary.FeatureSet) {
	s.mu.Lock()
	s.boundaries = fs
	s.cfg = s.cfg.WithBoundaryDefaults(fs)
	s.mu.Unlock()

	if s.opts.Observer != nil {
		s.opts.Observer.BoundariesLoaded(fs.Len())
	}
}

// LoadBoundaries parses an uploaded boundary document and, only on success,
// replaces the boundaries.
func (s *Session) LoadBoundaries(name string, r io.Reader) (*boundary.FeatureSet, error) {
	fs, err := s.loader.Parse(name, r)
	if err != nil {
		zap.L().Warn("session: boundary upload rejected", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	s.SetBoundaries(fs)
	return fs, nil
}

// LoadBoundarySource fetches src (path or URL) and replaces the boundaries
// on success.
func (s *Session) LoadBoundarySource(ctx context.Context, src string) (*boundary.FeatureSet, error) {
	fs, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	s.SetBoundaries(fs)
	return fs, nil
}

// FetchDefaultBoundaries loads the configured default boundary source. A
// failure is logged and the previous boundaries are kept.
func (s *Session) FetchDefaultBoundaries(ctx context.Context) error {
	if s.opts.DefaultBoundary == "" {
		return eris.New("session: no default boundary source configured")
	}
	if _, err := s.LoadBoundarySource(ctx, s.opts.DefaultBoundary); err != nil {
		zap.L().Error("session: default boundary fetch failed",
			zap.String("source", s.opts.DefaultBoundary),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Redraw renders the current state. On failure the previous scene is kept.
func (s *Session) Redraw() (*render.Scene, error) {
	s.mu.Lock()
	in := render.Inputs{Table: s.table, Boundaries: s.boundaries}
	cfg := s.cfg
	s.mu.Unlock()

	scene, err := render.Render(in, cfg, s.opts.Render)
	if err != nil {
		zap.L().Warn("session: redraw aborted", zap.Error(err))
		if s.opts.Observer != nil {
			s.opts.Observer.RenderFailed(err)
		}
		return nil, err
	}

	s.mu.Lock()
	s.scene = scene
	s.mu.Unlock()

	if s.opts.Observer != nil {
		s.opts.Observer.Rendered(scene)
	}
	return scene, nil
}

// Scene returns the last rendered scene, or nil.
func (s *Session) Scene() *render.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

// Export serializes the last rendered scene.
func (s *Session) Export(format Format) ([]byte, string, error) {
	scene := s.Scene()
	if scene == nil {
		return nil, "", ErrNothingRendered
	}

	doc, err := export.SVG(scene)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case FormatSVG, "":
		return doc, export.FileName, nil
	case FormatPNG:
		w, h := s.opts.PNGWidth, s.opts.PNGHeight
		if w <= 0 || h <= 0 {
			w, h = int(scene.Width), int(scene.Height)
		}
		out, err := export.PNG(doc, w, h)
		if err != nil {
			return nil, "", err
		}
		return out, export.PNGFileName, nil
	default:
		return nil, "", eris.Errorf("session: unknown export format %q", format)
	}
}
