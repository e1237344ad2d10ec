package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoplot/internal/boundary"
	"github.com/sells-group/geoplot/internal/config"
	"github.com/sells-group/geoplot/internal/dataset"
	"github.com/sells-group/geoplot/internal/mapping"
	"github.com/sells-group/geoplot/internal/render"
	"github.com/sells-group/geoplot/internal/session"
	"github.com/sells-group/geoplot/internal/store"
)

// renderRequest is everything render needs besides the mapping overrides.
type renderRequest struct {
	Data        string
	Boundaries  string
	MappingFile string
	Preset      string
	Out         string
	Format      string
}

var (
	renderReq   renderRequest
	renderFlags mappingFlags
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a map to SVG or PNG",
	Example: `  geoplot render --data cities.csv --out cities.svg
  geoplot render --data gdp.csv --mode choropleth --key country --value gdp --scheme Blues
  geoplot render --data sites.xlsx --boundaries counties.zip --format png --out -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("render"); err != nil {
			return err
		}

		var st store.Store
		if renderReq.Preset != "" {
			s, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			st = s
		}

		scene, err := executeRender(cmd.Context(), cfg, renderReq, renderFlags.patch(cmd), st, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		zap.L().Info("map rendered",
			zap.String("mode", string(scene.Mode)),
			zap.Int("regions", len(scene.Regions)),
			zap.Int("plotted", scene.Stats.Plotted),
			zap.Int("discarded", scene.Stats.Discarded),
			zap.Int("matched", scene.Stats.Matched),
		)
		return nil
	},
}

// executeRender loads inputs concurrently, resolves the mapping and writes
// the export to req.Out ("-" for w).
func executeRender(ctx context.Context, c *config.Config, req renderRequest, patch mapping.Patch, st store.Store, w io.Writer) (*render.Scene, error) {
	env, err := initMapEnv(c, nil)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	table, fs, err := loadInputs(ctx, env, req.Data, req.Boundaries, c.Boundary.DefaultURL)
	if err != nil {
		return nil, err
	}
	if table != nil {
		env.Session.SetDataset(table)
	}
	env.Session.SetBoundaries(fs)

	mcfg, err := resolveMapping(ctx, env.Session.Config(), req, patch, st)
	if err != nil {
		return nil, err
	}
	if err := env.Session.ReplaceConfig(mcfg); err != nil {
		return nil, err
	}

	scene, err := env.Session.Redraw()
	if err != nil {
		return nil, err
	}

	format := session.Format(req.Format)
	data, filename, err := env.Session.Export(format)
	if err != nil {
		return nil, err
	}

	out := req.Out
	if out == "" {
		out = filename
	}
	if out == "-" {
		_, err = w.Write(data)
		return scene, eris.Wrap(err, "write output")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return nil, eris.Wrapf(err, "write %s", out)
	}
	zap.L().Info("wrote map", zap.String("path", out), zap.Int("bytes", len(data)))
	return scene, nil
}

// loadInputs fetches the dataset (optional) and boundaries in parallel.
func loadInputs(ctx context.Context, env *mapEnv, data, boundaries, defaultBoundaries string) (*dataset.Table, *boundary.FeatureSet, error) {
	if boundaries == "" {
		boundaries = defaultBoundaries
	}
	if boundaries == "" {
		return nil, nil, eris.New("no boundary source: pass --boundaries or set boundary.default_url")
	}

	var (
		table *dataset.Table
		fs    *boundary.FeatureSet
	)
	g, gctx := errgroup.WithContext(ctx)
	if data != "" {
		g.Go(func() error {
			t, err := env.loadDataset(gctx, data)
			table = t
			return err
		})
	}
	g.Go(func() error {
		f, err := env.Loader.Load(gctx, boundaries)
		fs = f
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return table, fs, nil
}

// resolveMapping layers preset, mapping file and flag overrides onto base.
func resolveMapping(ctx context.Context, base mapping.Config, req renderRequest, patch mapping.Patch, st store.Store) (mapping.Config, error) {
	cfg := base
	if req.Preset != "" {
		if st == nil {
			return mapping.Config{}, eris.New("preset store is not available")
		}
		p, err := st.GetPreset(ctx, req.Preset)
		if err != nil {
			return mapping.Config{}, eris.Wrapf(err, "load preset %s", req.Preset)
		}
		cfg = p.Config
	}
	if req.MappingFile != "" {
		data, err := os.ReadFile(req.MappingFile)
		if err != nil {
			return mapping.Config{}, eris.Wrapf(err, "read mapping file %s", req.MappingFile)
		}
		if cfg, err = cfg.OverlayYAML(data); err != nil {
			return mapping.Config{}, err
		}
	}
	cfg = cfg.Apply(patch)
	return cfg, cfg.Validate()
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderReq.Data, "data", "", "dataset path or URL (.csv, .tsv, .txt, .xlsx)")
	f.StringVar(&renderReq.Boundaries, "boundaries", "", "boundary path or URL (GeoJSON, .shp, zipped shapefile); default from config")
	f.StringVar(&renderReq.MappingFile, "mapping", "", "YAML mapping file applied before flag overrides")
	f.StringVar(&renderReq.Preset, "preset", "", "saved preset name or ID")
	f.StringVarP(&renderReq.Out, "out", "o", "", "output path, - for stdout (default map.svg or map.png)")
	f.StringVar(&renderReq.Format, "format", "svg", "export format: svg or png")
	renderFlags.register(renderCmd)
	rootCmd.AddCommand(renderCmd)
}
