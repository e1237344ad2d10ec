package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geoplot/internal/boundary"
	"github.com/sells-group/geoplot/internal/config"
	"github.com/sells-group/geoplot/internal/dataset"
)

var (
	inspectData       string
	inspectBoundaries string
)

type datasetReport struct {
	Name     string           `json:"name"`
	Columns  []string         `json:"columns"`
	Rows     int              `json:"rows"`
	Defaults dataset.Defaults `json:"defaults"`
}

type boundaryReport struct {
	Source             string   `json:"source"`
	Features           int      `json:"features"`
	PropertyKeys       []string `json:"property_keys"`
	DefaultKeyProperty string   `json:"default_key_property"`
}

type inspectReport struct {
	Dataset    *datasetReport  `json:"dataset,omitempty"`
	Boundaries *boundaryReport `json:"boundaries,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print dataset columns, inferred selections and boundary property keys as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectData == "" && inspectBoundaries == "" {
			return eris.New("nothing to inspect: pass --data and/or --boundaries")
		}
		return runInspect(cmd.Context(), cfg, inspectData, inspectBoundaries, cmd.OutOrStdout())
	},
}

func runInspect(ctx context.Context, c *config.Config, data, boundaries string, w io.Writer) error {
	env, err := initMapEnv(c, nil)
	if err != nil {
		return err
	}
	defer env.Close()

	var report inspectReport
	if boundaries == "" {
		t, err := env.loadDataset(ctx, data)
		if err != nil {
			return err
		}
		report.Dataset = newDatasetReport(t)
	} else {
		t, fs, err := loadInputs(ctx, env, data, boundaries, "")
		if err != nil {
			return err
		}
		if t != nil {
			report.Dataset = newDatasetReport(t)
		}
		report.Boundaries = newBoundaryReport(fs)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(report), "encode report")
}

func newDatasetReport(t *dataset.Table) *datasetReport {
	return &datasetReport{
		Name:     t.Name,
		Columns:  t.Columns,
		Rows:     t.Len(),
		Defaults: dataset.InferDefaults(t.Columns),
	}
}

func newBoundaryReport(fs *boundary.FeatureSet) *boundaryReport {
	return &boundaryReport{
		Source:             fs.Source,
		Features:           fs.Len(),
		PropertyKeys:       fs.PropertyKeys,
		DefaultKeyProperty: boundary.DefaultKeyProperty(fs),
	}
}

func init() {
	inspectCmd.Flags().StringVar(&inspectData, "data", "", "dataset path or URL")
	inspectCmd.Flags().StringVar(&inspectBoundaries, "boundaries", "", "boundary path or URL")
	rootCmd.AddCommand(inspectCmd)
}
