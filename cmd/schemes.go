package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/geoplot/internal/scale"
)

var schemesStops bool

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List choropleth color schemes",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, name := range scale.Names() {
			if !schemesStops {
				fmt.Fprintln(w, name)
				continue
			}
			s, _ := scale.LookupScheme(name)
			fmt.Fprintf(w, "%-10s %s\n", name, strings.Join(s.Stops(), " "))
		}
		return nil
	},
}

func init() {
	schemesCmd.Flags().BoolVar(&schemesStops, "stops", false, "print each scheme's color stops")
	rootCmd.AddCommand(schemesCmd)
}
