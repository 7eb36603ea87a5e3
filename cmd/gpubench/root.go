package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/haormj/gpubench/accelerated"
	_ "github.com/haormj/gpubench/accelerated/blackcl"
	_ "github.com/haormj/gpubench/accelerated/cpu"
	_ "github.com/haormj/gpubench/accelerated/goopencl"
	"github.com/haormj/gpubench/accelerated/kernels"
	"github.com/haormj/version"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	backend      string
	kernelSource string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "gpubench",
		Short:         "Compare CPU and GPU implementations of small compute kernels",
		Version:       version.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setupLogging(opts.logLevel)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "blackcl",
		fmt.Sprintf("compute backend (%s)", strings.Join(accelerated.Names(), ", ")))
	flags.StringVar(&opts.kernelSource, "kernel-source", "", "OpenCL program to build instead of the embedded one")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newMatMulCmd(opts),
		newArraysCmd(opts),
		newRippleCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))

	return nil
}

// withBackend opens the selected backend, runs f and releases the backend.
func (o *rootOptions) withBackend(f func(accelerated.Backend) error) (err error) {
	src, err := kernels.Load(o.kernelSource)
	if err != nil {
		return err
	}

	b, err := accelerated.Open(o.backend, src)
	if err != nil {
		return err
	}

	defer func() {
		if rerr := b.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	slog.Debug("backend ready", "backend", b.Name())

	return f(b)
}
