package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/eastwest/internal/location"
	"github.com/sells-group/eastwest/pkg/positioning"
)

var (
	publishAccuracy  float64
	publishErrorCode int
	publishMessage   string
)

var publishCmd = &cobra.Command{
	Use:   "publish <lat> <lon>",
	Short: "Publish one fix to the NATS position feed",
	Long:  "Acts as a GPS bridge for testing: sends a single sample, or a failure with --error-code, to the configured subject.",
	Example: `  eastwest publish 52.5219 13.4132 --accuracy 12
  eastwest publish 0 0 --error-code 1 --message "Geolocation permission denied"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sample, err := buildSample(args[0], args[1], publishAccuracy, publishErrorCode, publishMessage, time.Now().UTC())
		if err != nil {
			return err
		}

		src, err := positioning.DialNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		if err := src.PublishSample(sample); err != nil {
			return err
		}
		zap.L().Info("sample published",
			zap.String("subject", src.Subject()),
			zap.Float64("lat", sample.Lat),
			zap.Float64("lon", sample.Lon),
			zap.Bool("failure", sample.Error != nil),
		)
		return nil
	},
}

// buildSample turns the command arguments into a fix, or a failure when
// code is non-zero.
func buildSample(latArg, lonArg string, accuracy float64, code int, msg string, now time.Time) (positioning.Sample, error) {
	if code != 0 {
		if code < int(location.CodePermissionDenied) || code > int(location.CodeTimeout) {
			return positioning.Sample{}, eris.Errorf("publish: unknown error code %d", code)
		}
		return positioning.Sample{Error: &location.PositionError{Code: location.ErrorCode(code), Message: msg}}, nil
	}

	c, err := parseCoordinate(latArg, lonArg)
	if err != nil {
		return positioning.Sample{}, err
	}
	if accuracy < 0 {
		return positioning.Sample{}, eris.Errorf("publish: accuracy %v must not be negative", accuracy)
	}
	return positioning.Sample{Lat: c.Lat, Lon: c.Lon, Accuracy: accuracy, Timestamp: now}, nil
}

func init() {
	publishCmd.Flags().Float64Var(&publishAccuracy, "accuracy", 25, "fix accuracy in metres")
	publishCmd.Flags().IntVar(&publishErrorCode, "error-code", 0, "publish a failure instead (1 denied, 2 unavailable, 3 timeout)")
	publishCmd.Flags().StringVar(&publishMessage, "message", "", "failure message")
	rootCmd.AddCommand(publishCmd)
}
