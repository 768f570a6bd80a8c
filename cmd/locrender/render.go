package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/locrender/internal/config"
	"github.com/banshee-data/locrender/internal/export"
	"github.com/banshee-data/locrender/internal/locstore"
	"github.com/banshee-data/locrender/internal/render"
)

func runRender(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("render", stdout)
	dbPath := fs.String("db", defaultDBPath, "path to sqlite db")
	datasetID := fs.String("dataset", "", "dataset ID to render")
	configPath := fs.String("config", "", "render config JSON (flags below override it)")
	out := fs.String("o", "render.png", "output file (.png, .tif, .tiff or .html)")
	oversampling := fs.Float64("oversampling", 1, "grid cells per native pixel")
	blur := fs.String("blur", "none", "blur method: none, convolve or adaptive")
	viewport := fs.String("viewport", "", "y_min,x_min,y_max,x_max in native pixels (default: full frame)")
	workers := fs.Int("workers", 0, "adaptive splat workers (0 = GOMAXPROCS)")
	widthIn := fs.Float64("width-in", 8, "PNG width in inches")
	maxCells := fs.Int("max-cells", config.DefaultMaxHTMLCells, "HTML heatmap cell budget")
	sidecar := fs.Bool("sidecar", true, "write <output>.yaml describing the render")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *datasetID == "" {
		return fmt.Errorf("%w: render needs -dataset", errUsage)
	}

	cfg := config.DefaultRenderConfig()
	if *configPath != "" {
		loaded, err := config.LoadRenderConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "oversampling":
			v := *oversampling
			cfg.Oversampling = &v
		case "blur":
			v := *blur
			cfg.BlurMethod = &v
		case "viewport":
			vp, err := parseViewport(*viewport)
			if err != nil {
				flagErr = err
				return
			}
			cfg.SetViewport(vp)
		case "workers":
			v := *workers
			cfg.Workers = &v
		case "width-in":
			v := *widthIn
			cfg.PNGWidthIn = &v
		case "max-cells":
			v := *maxCells
			cfg.MaxHTMLCells = &v
		}
	})
	if flagErr != nil {
		return flagErr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := outputFormat(*out)
	if err != nil {
		return err
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ds, err := store.GetDataset(ctx, *datasetID)
	if err != nil {
		return err
	}
	locs, err := store.LoadLocalizations(ctx, ds.DatasetID)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := render.Render(ctx, locs, ds.FrameInfo(), cfg.Options())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := writeOutput(*out, format, res, cfg); err != nil {
		return err
	}
	if *sidecar {
		if err := writeSidecar(strings.TrimSuffix(*out, filepath.Ext(*out))+".yaml", ds, res); err != nil {
			return err
		}
	}

	if err := store.RecordRender(ctx, locstore.NewRenderRun(ds.DatasetID, res, elapsed, *out)); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "rendered %s: %s %dx%d, %d/%d in view -> %s\n",
		ds.Name, res.Method, res.Image.Rows, res.Image.Cols, res.Stats.InView, res.Stats.Total, *out)
	return nil
}

// parseViewport parses "y_min,x_min,y_max,x_max".
func parseViewport(s string) (render.Viewport, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return render.Viewport{}, fmt.Errorf("%w: viewport %q needs four comma-separated values", render.ErrInvalidConfiguration, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return render.Viewport{}, fmt.Errorf("%w: invalid float '%s' in viewport", render.ErrInvalidConfiguration, p)
		}
		v[i] = f
	}
	return render.Viewport{YMin: v[0], XMin: v[1], YMax: v[2], XMax: v[3]}, nil
}

func outputFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return "png", nil
	case ".tif", ".tiff":
		return "tiff", nil
	case ".html", ".htm":
		return "html", nil
	default:
		return "", fmt.Errorf("%w: unsupported output extension %q", errUsage, ext)
	}
}

func writeOutput(path, format string, res *render.Result, cfg *config.RenderConfig) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	switch format {
	case "png":
		return export.WritePNG(f, res, export.PNGOptions{WidthIn: cfg.GetPNGWidthIn()})
	case "tiff":
		return export.WriteTIFF(f, res.Image)
	default:
		return export.WriteHTML(f, res, cfg.GetMaxHTMLCells())
	}
}

func writeSidecar(path string, ds *locstore.Dataset, res *render.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sidecar: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close sidecar: %w", cerr)
		}
	}()

	movie := &locstore.MovieInfo{Width: ds.FrameWidth, Height: ds.FrameHeight, Frames: ds.Frames}
	params := map[string]interface{}{
		"Dataset":      ds.DatasetID,
		"Blur method":  res.Method.String(),
		"Oversampling": res.Oversampling,
		"Viewport":     [][]float64{{res.Viewport.YMin, res.Viewport.XMin}, {res.Viewport.YMax, res.Viewport.XMax}},
		"Rendered":     res.Stats.InView,
	}
	return locstore.SaveInfo(f, movie, params)
}
