package locstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV parses a localization table. The header row names the columns;
// x and y are required, lpx and lpy must appear together or not at all,
// frame is optional and anything else is ignored. Names are matched
// case-insensitively.
func ReadCSV(r io.Reader) ([]Localization, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	ix, okX := col["x"]
	iy, okY := col["y"]
	if !okX || !okY {
		return nil, fmt.Errorf("csv: header %v must name x and y columns", header)
	}
	ilpx, okLPX := col["lpx"]
	ilpy, okLPY := col["lpy"]
	if okLPX != okLPY {
		return nil, errors.New("csv: lpx and lpy must both be present or both absent")
	}
	iframe, okFrame := col["frame"]

	var out []Localization
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}

		parse := func(name string, idx int) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
			if err != nil {
				return 0, fmt.Errorf("csv line %d: %s: %w", line, name, err)
			}
			return v, nil
		}

		l := Localization{LPX: math.NaN(), LPY: math.NaN()}
		if l.X, err = parse("x", ix); err != nil {
			return nil, err
		}
		if l.Y, err = parse("y", iy); err != nil {
			return nil, err
		}
		if okLPX {
			if l.LPX, err = parse("lpx", ilpx); err != nil {
				return nil, err
			}
			if l.LPY, err = parse("lpy", ilpy); err != nil {
				return nil, err
			}
		}
		if okFrame {
			f, err := strconv.ParseInt(strings.TrimSpace(rec[iframe]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: frame: %w", line, err)
			}
			l.Frame = f
		}
		out = append(out, l)
	}
	return out, nil
}
