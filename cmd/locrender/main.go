// Command locrender imports localization tables into a sqlite store and
// renders them as super-resolution images.
//
//	locrender import   -db locs.db -csv cell1.csv [-info cell1_locs.yaml]
//	locrender render   -db locs.db -dataset ID -o cell1.png [-config render.json]
//	locrender datasets -db locs.db [-runs ID]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/locrender/internal/locstore"
	"github.com/banshee-data/locrender/internal/version"
)

const defaultDBPath = "locrender.db"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatalf("locrender: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage(stdout)
		return errUsage
	}

	switch args[0] {
	case "import":
		return runImport(ctx, args[1:], stdout)
	case "render":
		return runRender(ctx, args[1:], stdout)
	case "datasets":
		return runDatasets(ctx, args[1:], stdout)
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "locrender %s\n", version.String())
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stdout)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: locrender <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  import     load a CSV localization table (and its _locs.yaml) into the store")
	fmt.Fprintln(w, "  render     render a stored dataset to PNG, TIFF or HTML")
	fmt.Fprintln(w, "  datasets   list stored datasets and their render runs")
	fmt.Fprintln(w, "  version    print build information")
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// openStore opens the database and brings its schema up to date.
func openStore(path string) (*locstore.Store, error) {
	s, err := locstore.Open(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
