package downloads

import (
	"context"

	"github.com/dmitrijs2005/pvault/internal/client/models"
)

// Repository describes the download ledger.
type Repository interface {
	// Record appends a saved download.
	Record(ctx context.Context, rec models.DownloadRecord) error

	// List returns up to limit records, newest first. A non-positive limit
	// returns everything.
	List(ctx context.Context, limit int) ([]models.DownloadRecord, error)

	// Clear removes every record.
	Clear(ctx context.Context) error
}
