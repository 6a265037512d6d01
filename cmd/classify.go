package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/eastwest/internal/boundary"
	"github.com/sells-group/eastwest/internal/geo"
	"github.com/sells-group/eastwest/internal/location"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <lat> <lon>",
	Short: "Classify one coordinate",
	Example: `  eastwest classify 52.5219 13.4132
  eastwest classify --json 52.5167 13.295`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseCoordinate(args[0], args[1])
		if err != nil {
			return err
		}
		ds, err := boundary.Load(cfg.Boundary)
		if err != nil {
			return err
		}
		return runClassify(cmd.OutOrStdout(), ds, c, classifyJSON)
	},
}

func parseCoordinate(latArg, lonArg string) (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return geo.Coordinate{}, eris.Wrapf(err, "classify: parse latitude %q", latArg)
	}
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return geo.Coordinate{}, eris.Wrapf(err, "classify: parse longitude %q", lonArg)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return geo.Coordinate{}, eris.Errorf("classify: coordinate %v,%v out of range", lat, lon)
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}

type classifyOutput struct {
	geo.Coordinate
	geo.Result
	Text string `json:"text"`
}

func classifyPoint(ds *boundary.Dataset, c geo.Coordinate) classifyOutput {
	res := ds.Classify(c)
	snap := location.Snapshot{Status: location.StatusFromVerdict(res.Verdict), District: res.District}
	return classifyOutput{Coordinate: c, Result: res, Text: location.DisplayText(snap, ds.City)}
}

func runClassify(w io.Writer, ds *boundary.Dataset, c geo.Coordinate, asJSON bool) error {
	out := classifyPoint(ds, c)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	line := out.Text
	if out.District != "" {
		line += " (" + out.District + ")"
	}
	_, err := fmt.Fprintf(w, "%s\n%s, %s\n", line,
		location.FormatCoordinate(c.Lat), location.FormatCoordinate(c.Lon))
	return err
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(classifyCmd)
}
