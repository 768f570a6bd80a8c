package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/locrender/internal/locstore"
)

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("import", stdout)
	dbPath := fs.String("db", defaultDBPath, "path to sqlite db")
	csvPath := fs.String("csv", "", "localization table (header: x,y[,lpx,lpy][,frame])")
	infoPath := fs.String("info", "", "sidecar YAML (default: <csv base>_locs.yaml when present)")
	name := fs.String("name", "", "dataset name (default: csv file name)")
	width := fs.Int("width", 0, "frame width in pixels, overrides the sidecar")
	height := fs.Int("height", 0, "frame height in pixels, overrides the sidecar")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *csvPath == "" {
		return fmt.Errorf("%w: import needs -csv", errUsage)
	}

	ds := &locstore.Dataset{Name: *name}
	if ds.Name == "" {
		ds.Name = strings.TrimSuffix(filepath.Base(*csvPath), filepath.Ext(*csvPath))
	}

	sidecar := *infoPath
	if sidecar == "" {
		if p := locstore.LocsInfoPath(*csvPath); fileExists(p) {
			sidecar = p
		}
	}
	if sidecar != "" {
		raw, err := os.ReadFile(sidecar)
		if err != nil {
			return fmt.Errorf("read info: %w", err)
		}
		info, err := locstore.LoadInfo(sidecar)
		if err != nil {
			return err
		}
		ds.FrameWidth, ds.FrameHeight = info.Movie.Width, info.Movie.Height
		ds.Frames = info.Movie.Frames
		ds.InfoYAML = string(raw)
	}
	if *width > 0 {
		ds.FrameWidth = *width
	}
	if *height > 0 {
		ds.FrameHeight = *height
	}
	if ds.FrameWidth <= 0 || ds.FrameHeight <= 0 {
		return fmt.Errorf("%w: frame size unknown; pass -info or -width/-height", errUsage)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	rows, err := locstore.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", *csvPath, err)
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateDataset(ctx, ds); err != nil {
		return err
	}
	if err := store.InsertLocalizations(ctx, ds.DatasetID, rows); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "imported %d localizations as %s (%s, %dx%d)\n", len(rows), ds.DatasetID, ds.Name, ds.FrameWidth, ds.FrameHeight)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
