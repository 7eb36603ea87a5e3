package main

import (
	"fmt"

	"github.com/haormj/gpubench/accelerated"
	"github.com/haormj/gpubench/bench"
	"github.com/haormj/version"
	"github.com/spf13/cobra"
)

func newMatMulCmd(opts *rootOptions) *cobra.Command {
	cfg := bench.DefaultMatMulConfig()

	cmd := &cobra.Command{
		Use:   "matmul",
		Short: "Multiply two random matrices on the CPU, with BLAS and on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withBackend(func(b accelerated.Backend) error {
				_, err := bench.MatMul(b, cfg, cmd.OutOrStdout())
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.OuterDim, "outer", cfg.OuterDim, "rows of A and columns of B")
	flags.IntVar(&cfg.InnerDim, "inner", cfg.InnerDim, "columns of A and rows of B")
	flags.Float32Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "absolute tolerance when comparing results")
	flags.BoolVar(&cfg.Accelerated, "accelerated", cfg.Accelerated, "also run the BLAS multiply")

	return cmd
}

func newArraysCmd(opts *rootOptions) *cobra.Command {
	cfg := bench.DefaultArraysConfig()

	cmd := &cobra.Command{
		Use:   "multiply-arrays",
		Short: "Multiply two random arrays elementwise on the CPU and on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withBackend(func(b accelerated.Backend) error {
				_, err := bench.MultiplyArrays(b, cfg, cmd.OutOrStdout())
				return err
			})
		},
	}

	cmd.Flags().IntVar(&cfg.Size, "size", cfg.Size, "number of elements per array")

	return cmd
}

func newRippleCmd(opts *rootOptions) *cobra.Command {
	cfg := bench.DefaultRippleConfig()

	cmd := &cobra.Command{
		Use:   "ripple",
		Short: "Step the ripple simulation on the CPU and on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withBackend(func(b accelerated.Backend) error {
				_, err := bench.Ripple(b, cfg, cmd.OutOrStdout())
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.GridWidth, "width", cfg.GridWidth, "vertices along x")
	flags.IntVar(&cfg.GridHeight, "height", cfg.GridHeight, "vertices along y")
	flags.IntVar(&cfg.MaxRipples, "max-ripples", cfg.MaxRipples, "ripples alive at once")
	flags.IntVar(&cfg.Frames, "frames", cfg.Frames, "frames to simulate")
	flags.Float32Var(&cfg.FrameTime, "frame-time", cfg.FrameTime, "simulated seconds per frame")
	flags.Float32Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "absolute tolerance when comparing surfaces")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.FullVersion())
		},
	}
}
