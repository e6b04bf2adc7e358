package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/classgrid-api/internal/catalogio"
	"github.com/noah-isme/classgrid-api/internal/scheduler"
)

var errIncomplete = errors.New("schedule is incomplete")

type generateOptions struct {
	input      string
	out        string
	format     string
	optimize   bool
	strict     bool
	seed       int64
	steps      int
	iterations int
	timeout    time.Duration
	workers    int
	weights    scheduler.Weights
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{optimize: true, format: "txt", weights: scheduler.DefaultWeights}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "build a schedule and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "catalog JSON file, CSV directory, or - for stdin")
	flags.StringVarP(&opts.out, "out", "o", "", "write the report to this file instead of stdout")
	flags.StringVarP(&opts.format, "format", "f", opts.format, "report format: json, csv or txt")
	flags.BoolVar(&opts.optimize, "optimize", opts.optimize, "run repair and improvement after the greedy pass")
	flags.BoolVar(&opts.strict, "strict", false, "exit non-zero unless every section is placed conflict free")
	flags.Int64Var(&opts.seed, "seed", 0, "seed for the improvement pass")
	flags.IntVar(&opts.steps, "steps", 0, "maximum repair steps (0 uses the default)")
	flags.IntVar(&opts.iterations, "iterations", 0, "maximum improvement iterations (0 uses the default, -1 disables)")
	flags.DurationVarP(&opts.timeout, "timeout", "t", 0, "wall clock limit for optimization")
	flags.IntVar(&opts.workers, "workers", 0, "goroutines used to scan candidates")
	flags.Float64Var(&opts.weights.Preference, "w-preference", opts.weights.Preference, "weight of instructor slot preference")
	flags.Float64Var(&opts.weights.Utilization, "w-utilization", opts.weights.Utilization, "weight of room utilization")
	flags.Float64Var(&opts.weights.Balance, "w-balance", opts.weights.Balance, "weight of instructor load balance")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	format := strings.ToLower(opts.format)
	write, ok := reportWriters[format]
	if !ok {
		return fmt.Errorf("unknown format %q (want json, csv or txt)", opts.format)
	}
	if opts.weights.Preference < 0 || opts.weights.Utilization < 0 || opts.weights.Balance < 0 {
		return errors.New("weights must be >= 0")
	}
	if opts.weights.IsZero() {
		return errors.New("at least one weight must be positive")
	}

	cat, err := loadCatalog(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}

	logger := root.logger()
	defer logger.Sync() //nolint:errcheck
	engine := scheduler.New(scheduler.Config{Weights: opts.weights, Workers: opts.workers}, logger)

	ctx := cmd.Context()
	sched, err := engine.GenerateInitialSchedule(ctx, cat)
	if err != nil {
		return err
	}
	if opts.optimize {
		budget := scheduler.Budget{
			MaxSteps:   opts.steps,
			Iterations: opts.iterations,
			TimeLimit:  opts.timeout,
			Seed:       opts.seed,
		}
		sched, err = engine.OptimizeSchedule(ctx, cat, sched, budget)
		if err != nil {
			return err
		}
	}
	report := scheduler.BuildReport(sched)

	out := cmd.OutOrStdout()
	if opts.out != "" {
		file, err := os.Create(opts.out)
		if err != nil {
			return err
		}
		defer file.Close() //nolint:errcheck
		out = file
	}
	if err := write(out, report); err != nil {
		return err
	}
	if opts.out != "" {
		for _, line := range catalogio.SummaryLines(report) {
			fmt.Fprintln(cmd.ErrOrStderr(), line)
		}
	}

	if opts.strict && report.Status != scheduler.StatusComplete {
		return fmt.Errorf("%w: %d of %d sections placed conflict free", errIncomplete, report.Feasible, report.TotalSections)
	}
	return nil
}

var reportWriters = map[string]func(io.Writer, scheduler.Report) error{
	"json": catalogio.WriteReportJSON,
	"csv":  catalogio.WriteReportCSV,
	"txt":  catalogio.WriteReportText,
}
