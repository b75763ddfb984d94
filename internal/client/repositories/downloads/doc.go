// Package downloads persists the local ledger of saved prescription files.
//
// Every successful download, doctor or patient, appends one record with the
// artifact id, the final location and the content type. The CLI shows the
// ledger with "history" and wipes it with "history clear".
//
// Typical Usage
//
//	repo := downloads.NewSQLiteRepository(db)
//	_ = repo.Record(ctx, rec)
//	recent, _ := repo.List(ctx, 20)
package downloads
