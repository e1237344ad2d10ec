package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geoplot/internal/mapping"
	"github.com/sells-group/geoplot/internal/store"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved mapping presets",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("preset")
	},
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st store.Store) error {
			return listPresets(cmd.Context(), st, cmd.OutOrStdout())
		})
	},
}

var (
	presetMappingFile string
	presetDescription string
	presetFlags       mappingFlags
)

var presetSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Save a mapping file and/or flag overrides as a named preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st store.Store) error {
			p, err := savePreset(cmd.Context(), st, args[0], presetDescription, presetMappingFile, presetFlags.patch(cmd))
			if err != nil {
				return err
			}
			return writePresetJSON(cmd.OutOrStdout(), p)
		})
	},
}

var presetShowYAML bool

var presetShowCmd = &cobra.Command{
	Use:   "show NAME|ID",
	Short: "Print a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st store.Store) error {
			p, err := st.GetPreset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !presetShowYAML {
				return writePresetJSON(cmd.OutOrStdout(), p)
			}
			data, err := mapping.EncodeYAML(p.Config)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		})
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete NAME|ID",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st store.Store) error {
			p, err := st.GetPreset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := st.DeletePreset(cmd.Context(), p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", p.Name, p.ID)
			return nil
		})
	},
}

func withStore(ctx context.Context, fn func(store.Store) error) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func listPresets(ctx context.Context, st store.Store, w io.Writer) error {
	presets, err := st.ListPresets(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMODE\tUPDATED\tDESCRIPTION")
	for _, p := range presets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Config.Mode, p.UpdatedAt.Format("2006-01-02 15:04"), p.Description)
	}
	return tw.Flush()
}

// savePreset builds a config from defaults, an optional mapping file and the
// flag overrides, then stores it under name.
func savePreset(ctx context.Context, st store.Store, name, description, mappingFile string, patch mapping.Patch) (*store.Preset, error) {
	cfg := mapping.Default()
	if mappingFile != "" {
		data, err := os.ReadFile(mappingFile)
		if err != nil {
			return nil, eris.Wrapf(err, "read mapping file %s", mappingFile)
		}
		if cfg, err = cfg.OverlayYAML(data); err != nil {
			return nil, err
		}
	}
	cfg = cfg.Apply(patch)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return st.SavePreset(ctx, name, description, cfg)
}

func writePresetJSON(w io.Writer, p *store.Preset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(p), "encode preset")
}

func init() {
	presetSaveCmd.Flags().StringVar(&presetMappingFile, "mapping", "", "YAML mapping file")
	presetSaveCmd.Flags().StringVar(&presetDescription, "description", "", "preset description")
	presetFlags.register(presetSaveCmd)
	presetShowCmd.Flags().BoolVar(&presetShowYAML, "yaml", false, "print only the mapping as YAML (usable with render --mapping)")

	presetCmd.AddCommand(presetListCmd, presetSaveCmd, presetShowCmd, presetDeleteCmd)
	rootCmd.AddCommand(presetCmd)
}
