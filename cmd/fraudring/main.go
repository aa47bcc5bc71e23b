package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanshika/fraudring/internal/config"
	"github.com/vanshika/fraudring/internal/layout"
	"github.com/vanshika/fraudring/internal/logging"
)

var Version = "dev"

// options holds the persistent flags shared by every subcommand.
type options struct {
	jsonOut  bool
	verbose  bool
	workers  int
	maxTicks int
	seed     int64
	width    float64
	height   float64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "fraudring",
		Short:         "Lay out fraud rings offline and generate synthetic ring data",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.jsonOut, "json", "j", false, "Output as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")
	flags.IntVarP(&opts.workers, "workers", "w", 4, "Rings laid out in parallel")
	flags.IntVar(&opts.maxTicks, "max-ticks", 100, "Tick budget per ring")
	flags.Int64Var(&opts.seed, "seed", 0, "Seed for initial node placement")
	flags.Float64Var(&opts.width, "width", 800, "Canvas width")
	flags.Float64Var(&opts.height, "height", 600, "Canvas height")

	rootCmd.AddCommand(newLayoutCmd(opts))
	rootCmd.AddCommand(newDatagenCmd(opts))
	return rootCmd
}

func (o *options) layoutConfig() layout.Config {
	return layout.Config{
		Width:    o.width,
		Height:   o.height,
		MaxTicks: o.maxTicks,
		Seed:     o.seed,
	}
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return logging.NewWithWriter(config.LoggingConfig{Level: level}, cmd.ErrOrStderr())
}
