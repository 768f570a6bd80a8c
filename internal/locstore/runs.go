package locstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/locrender/internal/render"
)

// RenderRun records one render of a dataset.
type RenderRun struct {
	RunID        string          `json:"run_id"`
	DatasetID    string          `json:"dataset_id"`
	Method       string          `json:"blur_method"`
	Oversampling float64         `json:"oversampling"`
	Viewport     render.Viewport `json:"viewport"`
	Rows         int             `json:"rows"`
	Cols         int             `json:"cols"`
	InView       int             `json:"in_view"`
	TotalMass    float64         `json:"total_mass"`
	DurationNs   int64           `json:"duration_ns"`
	OutputPath   string          `json:"output_path,omitempty"`
	CreatedAtNs  int64           `json:"created_at_ns"`
}

// NewRenderRun fills a run from a render result.
func NewRenderRun(datasetID string, res *render.Result, elapsed time.Duration, outputPath string) *RenderRun {
	return &RenderRun{
		DatasetID:    datasetID,
		Method:       res.Method.String(),
		Oversampling: res.Oversampling,
		Viewport:     res.Viewport,
		Rows:         res.Image.Rows,
		Cols:         res.Image.Cols,
		InView:       res.Stats.InView,
		TotalMass:    res.Stats.TotalMass,
		DurationNs:   elapsed.Nanoseconds(),
		OutputPath:   outputPath,
	}
}

// RecordRender stores run. If run.RunID is empty, a new UUID is generated.
func (s *Store) RecordRender(ctx context.Context, run *RenderRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}

	query := `
		INSERT INTO render_runs (
			run_id, dataset_id, blur_method, oversampling,
			y_min, x_min, y_max, x_max, grid_rows, grid_cols,
			in_view, total_mass, duration_ns, output_path, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.DatasetID,
		run.Method,
		run.Oversampling,
		run.Viewport.YMin,
		run.Viewport.XMin,
		run.Viewport.YMax,
		run.Viewport.XMax,
		run.Rows,
		run.Cols,
		run.InView,
		run.TotalMass,
		run.DurationNs,
		nullString(run.OutputPath),
		run.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert render run: %w", err)
	}
	return nil
}

// ListRenders returns the runs for a dataset, oldest first.
func (s *Store) ListRenders(ctx context.Context, datasetID string) ([]*RenderRun, error) {
	query := `
		SELECT run_id, dataset_id, blur_method, oversampling,
		       y_min, x_min, y_max, x_max, grid_rows, grid_cols,
		       in_view, total_mass, duration_ns, COALESCE(output_path, ''), created_at_ns
		FROM render_runs
		WHERE dataset_id = ?
		ORDER BY created_at_ns, run_id
	`
	rows, err := s.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list render runs: %w", err)
	}
	defer rows.Close()

	var runs []*RenderRun
	for rows.Next() {
		var r RenderRun
		if err := rows.Scan(
			&r.RunID,
			&r.DatasetID,
			&r.Method,
			&r.Oversampling,
			&r.Viewport.YMin,
			&r.Viewport.XMin,
			&r.Viewport.YMax,
			&r.Viewport.XMax,
			&r.Rows,
			&r.Cols,
			&r.InView,
			&r.TotalMass,
			&r.DurationNs,
			&r.OutputPath,
			&r.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan render run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
