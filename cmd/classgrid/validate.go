package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/classgrid-api/internal/catalogio"
	"github.com/noah-isme/classgrid-api/internal/scheduler"
)

func newValidateCmd() *cobra.Command {
	var (
		input string
		show  int
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "check a catalog and list its most constrained sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalog ok: %d rooms, %d instructors, %d sections, %d cohorts\n",
				len(cat.Rooms()), len(cat.Instructors()), len(cat.Sections()), len(cat.Cohorts()))

			order := cat.PriorityOrder()
			switch {
			case show < 0:
				show = 0
			case show > len(order):
				show = len(order)
			}
			if show > 0 {
				fmt.Fprintln(out, "most constrained sections:")
			}
			for _, id := range order[:show] {
				sec, _ := cat.Section(id)
				fmt.Fprintf(out, "  %-12s %-12s %d candidates\n", sec.ID, sec.Course, cat.CandidateCount(id))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "catalog JSON file, CSV directory, or - for stdin")
	cmd.Flags().IntVar(&show, "show", 5, "number of constrained sections to list")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// loadCatalog reads an input from a JSON file, a CSV directory or stdin and
// validates it. The returned error lists every issue on its own line.
func loadCatalog(stdin io.Reader, path string) (*scheduler.Catalog, error) {
	var (
		in  scheduler.Input
		err error
	)
	switch info, statErr := os.Stat(path); {
	case path == "-":
		in, err = catalogio.LoadJSON(stdin)
	case statErr != nil:
		return nil, statErr
	case info.IsDir():
		in, err = catalogio.LoadCSVDir(path)
	default:
		in, err = catalogio.LoadJSONFile(path)
	}
	if err != nil {
		return nil, err
	}

	cat, err := scheduler.NewCatalog(in)
	if err != nil {
		var inputErr *scheduler.InputError
		if errors.As(err, &inputErr) {
			return nil, fmt.Errorf("invalid catalog:\n%s", inputErr.Detail())
		}
		return nil, err
	}
	return cat, nil
}
