package boundary

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoplot/internal/fetcher"
)

// Loader resolves boundary sources (local paths, http(s) or ftp URLs) and
// parses them into feature sets.
type Loader struct {
	opener  *fetcher.Opener
	cache   Cache
	tempDir string
}

// NewLoader creates a Loader. A nil cache disables caching.
func NewLoader(opener *fetcher.Opener, cache Cache, tempDir string) *Loader {
	if cache == nil {
		cache = NopCache{}
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Loader{opener: opener, cache: cache, tempDir: tempDir}
}

// Load fetches src and parses it. Remote documents are served from the cache
// when present and stored only once they parse, so a bad upstream response
// is retried on the next load. Zipped shapefile bundles are streamed to disk
// and never cached.
func (l *Loader) Load(ctx context.Context, src string) (*FeatureSet, error) {
	log := zap.L().With(zap.String("source", src))

	remote := fetcher.Scheme(src) != "file"
	switch ext := strings.ToLower(filepath.Ext(sourceName(src))); {
	case ext == ".shp" && !remote:
		return ParseShapefile(strings.TrimPrefix(src, "file://"))
	case ext == ".zip":
		return l.loadZIP(ctx, src)
	}

	var (
		data   []byte
		cached bool
	)
	if remote {
		data, cached = l.cache.Get(ctx, src)
		if cached {
			log.Debug("boundary: cache hit")
		}
	}
	if !cached {
		rc, err := l.opener.Open(ctx, src)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: open %s", src)
		}
		data, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: read %s", src)
		}
	}

	fs, err := l.Parse(sourceName(src), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if remote && !cached {
		l.cache.Put(ctx, src, data)
	}
	fs.Source = src
	log.Info("boundary: loaded", zap.Int("features", fs.Len()), zap.Strings("properties", fs.PropertyKeys))
	return fs, nil
}

// loadZIP parses a zipped shapefile bundle. Remote bundles are downloaded
// straight into a scratch file.
func (l *Loader) loadZIP(ctx context.Context, src string) (*FeatureSet, error) {
	if fetcher.Scheme(src) == "file" {
		fs, err := ParseShapefileZIP(strings.TrimPrefix(src, "file://"), l.tempDir)
		if err != nil {
			return nil, err
		}
		fs.Source = src
		return fs, nil
	}

	path, err := l.scratchZIP()
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(path) }()

	n, err := l.opener.OpenToFile(ctx, src, path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: download %s", src)
	}
	fs, err := ParseShapefileZIP(path, l.tempDir)
	if err != nil {
		return nil, err
	}
	fs.Source = src
	zap.L().Info("boundary: loaded bundle",
		zap.String("source", src),
		zap.Int64("bytes", n),
		zap.Int("features", fs.Len()),
	)
	return fs, nil
}

// scratchZIP reserves an empty file under the temp dir.
func (l *Loader) scratchZIP() (string, error) {
	if err := os.MkdirAll(l.tempDir, 0o750); err != nil {
		return "", eris.Wrap(err, "boundary: create temp dir")
	}
	f, err := os.CreateTemp(l.tempDir, "bundle-*.zip")
	if err != nil {
		return "", eris.Wrap(err, "boundary: create temp file")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "boundary: close temp file")
	}
	return f.Name(), nil
}

// Parse decodes an uploaded boundary document. Zipped shapefile bundles are
// recognized by extension or by the ZIP magic number; anything else is
// treated as GeoJSON.
func (l *Loader) Parse(name string, r io.Reader) (*FeatureSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: read upload")
	}

	if strings.EqualFold(filepath.Ext(name), ".zip") || bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return l.parseZIP(name, data)
	}
	return ParseGeoJSON(name, bytes.NewReader(data))
}

func (l *Loader) parseZIP(name string, data []byte) (*FeatureSet, error) {
	path, err := l.scratchZIP()
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(path) }()

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, eris.Wrap(err, "boundary: write temp file")
	}
	fs, err := ParseShapefileZIP(path, l.tempDir)
	if err != nil {
		return nil, err
	}
	fs.Source = name
	return fs, nil
}

// sourceName returns the final path element of a path or URL.
func sourceName(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	return path.Base(filepath.ToSlash(src))
}
