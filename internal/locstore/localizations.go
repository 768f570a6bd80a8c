package locstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/banshee-data/locrender/internal/render"
)

// Localization is one row of a dataset. LPX and LPY are NaN when the source
// had no precision columns.
type Localization struct {
	Frame int64
	X     float64
	Y     float64
	LPX   float64
	LPY   float64
}

// HasPrecision reports whether both precision values are present.
func (l Localization) HasPrecision() bool {
	return !math.IsNaN(l.LPX) && !math.IsNaN(l.LPY)
}

// Columns converts rows to the column form the renderer consumes. Precision
// columns are only populated when every row carries them.
func Columns(rows []Localization) render.Localizations {
	var locs render.Localizations
	precise := len(rows) > 0
	for _, r := range rows {
		precise = precise && r.HasPrecision()
	}
	for _, r := range rows {
		if precise {
			locs.Append(r.X, r.Y, r.LPX, r.LPY)
		} else {
			locs.X = append(locs.X, r.X)
			locs.Y = append(locs.Y, r.Y)
		}
	}
	return locs
}

// InsertLocalizations appends rows to a dataset in one transaction. Row order
// is preserved and continues after any rows already stored.
func (s *Store) InsertLocalizations(ctx context.Context, datasetID string, rows []Localization) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE dataset_id = ?`, datasetID).Scan(&exists); err != nil {
		return fmt.Errorf("check dataset: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(idx) + 1, 0) FROM localizations WHERE dataset_id = ?`, datasetID).Scan(&next); err != nil {
		return fmt.Errorf("next index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO localizations (dataset_id, idx, frame, x, y, lpx, lpy)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, datasetID, next+int64(i), r.Frame, r.X, r.Y, nullFloat(r.LPX), nullFloat(r.LPY)); err != nil {
			return fmt.Errorf("insert localization %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// LoadLocalizations returns a dataset's rows in insertion order, in column
// form. Precision columns are nil unless every row has them.
func (s *Store) LoadLocalizations(ctx context.Context, datasetID string) (render.Localizations, error) {
	if _, err := s.GetDataset(ctx, datasetID); err != nil {
		return render.Localizations{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, x, y, lpx, lpy
		FROM localizations
		WHERE dataset_id = ?
		ORDER BY idx
	`, datasetID)
	if err != nil {
		return render.Localizations{}, fmt.Errorf("load localizations: %w", err)
	}
	defer rows.Close()

	var out []Localization
	for rows.Next() {
		var r Localization
		var lpx, lpy sql.NullFloat64
		if err := rows.Scan(&r.Frame, &r.X, &r.Y, &lpx, &lpy); err != nil {
			return render.Localizations{}, fmt.Errorf("scan localization: %w", err)
		}
		r.LPX, r.LPY = math.NaN(), math.NaN()
		if lpx.Valid {
			r.LPX = lpx.Float64
		}
		if lpy.Valid {
			r.LPY = lpy.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return render.Localizations{}, fmt.Errorf("load localizations: %w", err)
	}
	return Columns(out), nil
}

func nullFloat(f float64) interface{} {
	if math.IsNaN(f) {
		return nil
	}
	return f
}
