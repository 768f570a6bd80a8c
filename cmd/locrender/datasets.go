package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

func runDatasets(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("datasets", stdout)
	dbPath := fs.String("db", defaultDBPath, "path to sqlite db")
	runsFor := fs.String("runs", "", "list render runs for this dataset ID instead")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	if *runsFor != "" {
		if _, err := store.GetDataset(ctx, *runsFor); err != nil {
			return err
		}
		runs, err := store.ListRenders(ctx, *runsFor)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "RUN\tMETHOD\tK\tGRID\tIN VIEW\tDURATION\tOUTPUT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%g\t%dx%d\t%d\t%s\t%s\n",
				r.RunID, r.Method, r.Oversampling, r.Rows, r.Cols, r.InView,
				time.Duration(r.DurationNs).Round(time.Microsecond), r.OutputPath)
		}
		return tw.Flush()
	}

	list, err := store.ListDatasets(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "ID\tNAME\tFRAME\tLOCALIZATIONS\tCREATED")
	for _, ds := range list {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%s\n",
			ds.DatasetID, ds.Name, ds.FrameWidth, ds.FrameHeight, ds.Count,
			time.Unix(0, ds.CreatedAtNs).UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
