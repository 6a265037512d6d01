package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/eastwest/internal/boundary"
	"github.com/sells-group/eastwest/internal/location"
)

var trackPlain bool

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Follow the configured position source in the terminal",
	Long:  "Prints the East/West status on every change. Press Enter to ask for a position when the prompt is shown.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := boundary.Load(cfg.Boundary)
		if err != nil {
			return err
		}
		src, err := buildSources(cfg)
		if err != nil {
			return err
		}
		defer src.Close()

		return runTrack(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), ds, src, controllerConfig(cfg), trackPlain)
	},
}

var ansiColors = map[string]string{
	"red":      "\x1b[31m",
	"blue":     "\x1b[34m",
	"gray":     "\x1b[37m",
	"darkgray": "\x1b[90m",
}

const ansiReset = "\x1b[0m"

// renderLine formats one snapshot. It returns "" while the display is
// suppressed.
func renderLine(s location.Snapshot, city string, plain bool) string {
	text := location.DisplayText(s, city)
	if text == "" {
		return ""
	}

	line := text
	if s.District != "" {
		line += " - " + s.District
	}
	if s.Coordinate != nil {
		line += fmt.Sprintf(" (%s, %s)",
			location.FormatCoordinate(s.Coordinate.Lat), location.FormatCoordinate(s.Coordinate.Lon))
	}
	if location.ShowPrompt(s) {
		line += "  [Enter] " + location.PromptLabel
	}
	if plain {
		return line
	}
	return ansiColors[location.Color(s.Status)] + line + ansiReset
}

func runTrack(ctx context.Context, in io.Reader, out io.Writer, ds *boundary.Dataset, src *sources, lc location.Config, plain bool) error {
	log := zap.L().With(zap.String("component", "cmd.track"))

	changed := make(chan struct{}, 1)
	lc.OnChange = func(location.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	ctrl := location.New(lc, ds, src.Positions, src.Permissions)
	ctrl.Start(gctx)
	defer ctrl.Close()

	// Stdin reads cannot be cancelled, so the scanner lives outside the group.
	lines := make(chan struct{})
	go func(lines chan<- struct{}) {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-gctx.Done():
				return
			}
		}
	}(lines)

	g.Go(func() error {
		var input <-chan struct{} = lines
		for {
			select {
			case <-gctx.Done():
				return nil
			case _, ok := <-input:
				if !ok {
					input = nil
					continue
				}
				log.Debug("position requested from terminal")
				ctrl.RequestPermission()
			}
		}
	})

	g.Go(func() error {
		last := ""
		render := func() error {
			line := renderLine(ctrl.Snapshot(), ds.City, plain)
			if line == "" || line == last {
				return nil
			}
			last = line
			_, err := fmt.Fprintln(out, line)
			return err
		}
		if err := render(); err != nil {
			return err
		}
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-changed:
				if err := render(); err != nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}

func init() {
	trackCmd.Flags().BoolVar(&trackPlain, "plain", false, "disable colours")
	rootCmd.AddCommand(trackCmd)
}
