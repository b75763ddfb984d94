package downloads

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Record(ctx context.Context, rec models.DownloadRecord) error {
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}
	query := `INSERT INTO downloads (artifact_id, name, location, content_type, size, saved_at)
			VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		string(rec.ArtifactID), rec.Name, rec.Location, rec.ContentType, rec.Size, rec.SavedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record download %s: %w", rec.ArtifactID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.DownloadRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT artifact_id, name, location, content_type, size, saved_at
			FROM downloads ORDER BY saved_at DESC, seq DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error selecting downloads: %w", err)
	}
	defer rows.Close()

	var result []models.DownloadRecord
	for rows.Next() {
		var (
			rec     models.DownloadRecord
			id      string
			savedAt int64
		)
		if err := rows.Scan(&id, &rec.Name, &rec.Location, &rec.ContentType, &rec.Size, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download row: %w", err)
		}
		rec.ArtifactID = models.ID(id)
		rec.SavedAt = time.UnixMilli(savedAt)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate download rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM downloads`); err != nil {
		return fmt.Errorf("failed to clear downloads: %w", err)
	}
	return nil
}
