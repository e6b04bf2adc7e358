package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "classgrid",
		Short: "Course section scheduler",
		Long: "Assigns course sections to rooms, instructors and weekly time slots.\n" +
			"Catalogs are read from a JSON file or a directory of CSV files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine progress to stderr")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newTokenCmd())
	return root
}
