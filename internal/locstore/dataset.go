package locstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/locrender/internal/render"
)

// Dataset is one imported localization table plus the movie it came from.
type Dataset struct {
	DatasetID   string `json:"dataset_id"`
	Name        string `json:"name"`
	FrameWidth  int    `json:"frame_width"`
	FrameHeight int    `json:"frame_height"`
	Frames      *int64 `json:"frames,omitempty"`
	// InfoYAML is the sidecar file as imported, kept verbatim.
	InfoYAML    string `json:"info_yaml,omitempty"`
	CreatedAtNs int64  `json:"created_at_ns"`

	// Count is filled by ListDatasets.
	Count int `json:"count"`
}

// FrameInfo returns the frame dimensions for rendering.
func (d *Dataset) FrameInfo() render.FrameInfo {
	return render.FrameInfo{Width: d.FrameWidth, Height: d.FrameHeight}
}

// CreateDataset inserts ds. If ds.DatasetID is empty, a new UUID is generated.
func (s *Store) CreateDataset(ctx context.Context, ds *Dataset) error {
	if ds.DatasetID == "" {
		ds.DatasetID = uuid.New().String()
	}
	if ds.CreatedAtNs == 0 {
		ds.CreatedAtNs = time.Now().UnixNano()
	}
	if ds.FrameWidth <= 0 || ds.FrameHeight <= 0 {
		return fmt.Errorf("%w: frame %dx%d must be positive", render.ErrInvalidConfiguration, ds.FrameWidth, ds.FrameHeight)
	}

	query := `
		INSERT INTO datasets (
			dataset_id, name, frame_width, frame_height, frames, info_yaml, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		ds.DatasetID,
		ds.Name,
		ds.FrameWidth,
		ds.FrameHeight,
		nullInt64(ds.Frames),
		nullString(ds.InfoYAML),
		ds.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

// GetDataset retrieves a dataset by ID.
func (s *Store) GetDataset(ctx context.Context, datasetID string) (*Dataset, error) {
	query := `
		SELECT d.dataset_id, d.name, d.frame_width, d.frame_height, d.frames,
		       d.info_yaml, d.created_at_ns,
		       (SELECT COUNT(*) FROM localizations l WHERE l.dataset_id = d.dataset_id)
		FROM datasets d
		WHERE d.dataset_id = ?
	`
	ds, err := scanDataset(s.db.QueryRowContext(ctx, query, datasetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return ds, nil
}

// ListDatasets returns every dataset, newest first.
func (s *Store) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	query := `
		SELECT d.dataset_id, d.name, d.frame_width, d.frame_height, d.frames,
		       d.info_yaml, d.created_at_ns,
		       (SELECT COUNT(*) FROM localizations l WHERE l.dataset_id = d.dataset_id)
		FROM datasets d
		ORDER BY d.created_at_ns DESC, d.dataset_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []*Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset with its localizations and render runs.
func (s *Store) DeleteDataset(ctx context.Context, datasetID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*Dataset, error) {
	var ds Dataset
	var frames sql.NullInt64
	var info sql.NullString
	if err := row.Scan(
		&ds.DatasetID,
		&ds.Name,
		&ds.FrameWidth,
		&ds.FrameHeight,
		&frames,
		&info,
		&ds.CreatedAtNs,
		&ds.Count,
	); err != nil {
		return nil, err
	}
	if frames.Valid {
		v := frames.Int64
		ds.Frames = &v
	}
	if info.Valid {
		ds.InfoYAML = info.String
	}
	return &ds, nil
}
