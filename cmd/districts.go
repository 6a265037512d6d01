package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/eastwest/internal/boundary"
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "List the boundary dataset and its districts in match order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := boundary.Load(cfg.Boundary)
		if err != nil {
			return err
		}
		return runDistricts(cmd.OutOrStdout(), ds)
	},
}

func runDistricts(w io.Writer, ds *boundary.Dataset) error {
	fmt.Fprintf(w, "City:      %s\n", ds.City)
	fmt.Fprintf(w, "Region:    lat %.4f..%.4f, lon %.4f..%.4f\n",
		ds.Region.MinLat, ds.Region.MaxLat, ds.Region.MinLon, ds.Region.MaxLon)
	fmt.Fprintf(w, "Partition: %d vertices\n\n", len(ds.Partition))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDISTRICT\tVERTICES")
	for i, d := range ds.Districts {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, d.Name, len(d.Polygon))
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(districtsCmd)
}
