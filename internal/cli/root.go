// Package cli implements the nws-weather command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/nws-weather/internal/common"
	"github.com/i474232898/nws-weather/internal/output"
	"github.com/i474232898/nws-weather/internal/scheduler"
	"github.com/i474232898/nws-weather/internal/weather"
)

type rootOptions struct {
	configPath string
	debug      bool

	zip            string
	lat            float64
	lon            float64
	unit           string
	icons          string
	format         string
	detailed       bool
	waitForNetwork bool
	interval       time.Duration
}

// Execute runs the CLI against the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the CLI with explicit arguments and streams. Errors are
// reported as "Error: <msg>" on stderr and yield exit code 1.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "nws-weather",
		Short: "Current weather from the National Weather Service for status bars",
		Long: `nws-weather prints current conditions for a US ZIP code or a coordinate pair,
using api.weather.gov forecasts refined by the nearest station observation.
Output is a waybar custom-module object by default.`,
		Example: `  nws-weather --zip 10001
  nws-weather --lat 40.71 --lon -74.01 --unit C --format plain
  nws-weather --zip 10001 --wait-for-network --interval 15m`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, o)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "path to a YAML config file")
	pf.BoolVar(&o.debug, "debug", false, "enable debug logging on stderr")

	f := cmd.Flags()
	f.StringVar(&o.zip, "zip", "", "5-digit US ZIP code")
	f.Float64Var(&o.lat, "lat", 0, "latitude in decimal degrees")
	f.Float64Var(&o.lon, "lon", 0, "longitude in decimal degrees")
	f.StringVar(&o.unit, "unit", string(output.Fahrenheit), "temperature unit (F or C)")
	f.StringVar(&o.icons, "icons", string(output.IconsNerdFont), "icon set (unicode, emoji, text, nerdfont)")
	f.StringVar(&o.format, "format", string(output.FormatWaybar), "output format (waybar, plain, json)")
	f.BoolVar(&o.detailed, "detailed", false, "include temperature, humidity and wind in the tooltip")
	f.BoolVar(&o.waitForNetwork, "wait-for-network", false, "probe connectivity before fetching instead of a fixed startup delay")
	f.DurationVar(&o.interval, "interval", 0, "refresh continuously at this interval (e.g. 15m)")

	cmd.MarkFlagsMutuallyExclusive("zip", "lat")
	cmd.MarkFlagsMutuallyExclusive("zip", "lon")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	cmd.MarkFlagsOneRequired("zip", "lat")

	cmd.AddCommand(newServeCmd(o))

	return cmd
}

func runRoot(cmd *cobra.Command, o *rootOptions) error {
	out := cmd.OutOrStdout()

	opts, err := o.renderOptions()
	if err != nil {
		return err
	}

	// From here on a waybar consumer always gets a valid object.
	fail := func(err error) error {
		if opts.Format == output.FormatWaybar {
			fmt.Fprintln(out, output.ErrorPayload(err))
		}
		return err
	}

	a, err := newApp(o.configPath, o.debug, cmd.ErrOrStderr())
	if err != nil {
		return fail(err)
	}

	ctx := cmd.Context()
	if err := a.awaitNetwork(ctx, o.waitForNetwork); err != nil {
		return fail(err)
	}

	q := o.locationQuery(cmd)

	if o.interval > 0 {
		return watch(ctx, a, q, opts, o.interval, out)
	}

	line, err := a.current(ctx, q, opts, "cli")
	if err != nil {
		return fail(err)
	}
	fmt.Fprintln(out, line)
	return nil
}

// watch prints one line per tick until ctx is cancelled. Failed ticks are
// logged and, in waybar format, replaced by the error payload.
func watch(ctx context.Context, a *app, q weather.LocationQuery, opts output.Options, interval time.Duration, out io.Writer) error {
	job := func(ctx context.Context) {
		line, err := a.current(ctx, q, opts, "watch")
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("refresh failed", "error", err)
			if opts.Format == output.FormatWaybar {
				fmt.Fprintln(out, output.ErrorPayload(err))
			}
			return
		}
		fmt.Fprintln(out, line)
	}

	return scheduler.New(interval, job, a.logger).Run(ctx)
}

func (o *rootOptions) renderOptions() (output.Options, error) {
	unit, err := output.ParseUnit(o.unit)
	if err != nil {
		return output.Options{}, err
	}
	icons, err := output.ParseIconSet(o.icons)
	if err != nil {
		return output.Options{}, err
	}
	format, err := output.ParseFormat(o.format)
	if err != nil {
		return output.Options{}, err
	}
	return output.Options{
		Unit:     unit,
		Icons:    icons,
		Format:   format,
		Detailed: o.detailed,
	}, nil
}

// locationQuery only sets the inputs the user actually passed, so 0,0 is a
// valid coordinate pair rather than "unset".
func (o *rootOptions) locationQuery(cmd *cobra.Command) weather.LocationQuery {
	var q weather.LocationQuery
	if cmd.Flags().Changed("zip") {
		q.ZIP = common.Ptr(o.zip)
	}
	if cmd.Flags().Changed("lat") {
		q.Latitude = common.Ptr(o.lat)
	}
	if cmd.Flags().Changed("lon") {
		q.Longitude = common.Ptr(o.lon)
	}
	return q
}
