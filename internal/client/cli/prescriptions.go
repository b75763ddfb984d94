package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/client/download"
	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/client/services"
)

const (
	msgNoPrescriptions = "No prescriptions found"
	msgUploaded        = "Prescription uploaded successfully!"
	msgUploadFailed    = "Upload failed"
	msgDownloaded      = "Prescription downloaded successfully"
	msgDownloadFailed  = "Failed to download prescription"
	usageDownload      = "Usage: download <id> [<id>...]"
	usageList          = "Usage: list [--doctor <id>] [term]"
)

// List prints the doctor's prescriptions, or those of doctorID when it is
// set, filtered by term when given. The file names are remembered so a later
// download keeps them.
func (a *App) List(ctx context.Context, doctorID models.ID, term string) error {
	var (
		list []models.PrescriptionSummary
		err  error
	)
	if doctorID != "" {
		list, err = a.doctors.PrescriptionsOf(ctx, doctorID)
	} else {
		list, err = a.doctors.Prescriptions(ctx)
	}
	if err != nil {
		a.log.Warn(ctx, "listing prescriptions failed", "error", err)
		a.failure(services.ListFailureMessage(err))
		if errors.Is(err, services.ErrSessionExpired) {
			a.recheck()
		}
		return err
	}
	for _, p := range list {
		a.listed[p.ID] = p.FileName
	}

	filtered := services.Filter(list, term)
	if len(filtered) == 0 {
		a.say(msgNoPrescriptions)
		return nil
	}
	a.outMu.Lock()
	printDoctorPrescriptions(a.out, filtered)
	a.outMu.Unlock()
	if term != "" {
		a.say("%d of %d prescriptions match %q", len(filtered), len(list), term)
	}
	return nil
}

// Upload prompts for the patient details and the file to attach.
func (a *App) Upload(ctx context.Context) error {
	var form models.UploadForm
	prompts := []struct {
		label    string
		dst      *string
		optional bool
	}{
		{"Patient name", &form.PatientName, false},
		{"Patient phone", &form.PatientPhone, false},
		{"Patient email", &form.PatientEmail, false},
		{"Patient address", &form.PatientAddress, true},
		{"Gender (MALE, FEMALE, OTHER)", &form.Gender, true},
		{"Age", &form.Age, true},
		{"Blood group (e.g. A_POS, O_NEG)", &form.BloodGroup, true},
	}
	for _, p := range prompts {
		read := getSimpleText
		if p.optional {
			read = GetOptionalText
		}
		v, err := read(a.reader, p.label, a.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}

	path, err := getSimpleText(a.reader, "Path to prescription file", a.out)
	if err != nil {
		return err
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			a.failure(fmt.Sprintf("cannot open %s: %v", path, err))
			return err
		}
		defer f.Close()
		form.File = f
		form.FileName = filepath.Base(path)
	}

	res, err := a.doctors.Upload(ctx, form)
	if err != nil {
		a.log.Warn(ctx, "upload failed", "error", err)
		a.reportDoctorError(err, msgUploadFailed)
		return err
	}
	a.success(msgUploaded)
	if res.ID != "" {
		a.say("Prescription id: %s", res.ID)
		a.listed[res.ID] = res.FileName
	}
	return nil
}

// Download fetches every id concurrently. Each id has its own progress
// indicator in the shared tracker; a failure of one never stops the others.
func (a *App) Download(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		a.say(usageDownload)
		return nil
	}

	var (
		g       errgroup.Group
		expired atomic.Bool
	)
	for _, raw := range ids {
		id := models.ID(raw)
		name := a.listed[id]
		g.Go(func() error {
			saved, err := a.doctors.Download(ctx, id, name)
			if err != nil {
				a.log.Warn(ctx, "download failed", "id", id, "error", err)
				if errors.Is(err, services.ErrSessionExpired) {
					expired.Store(true)
				}
				a.failure(downloadFailureMessage(id, err))
				return err
			}
			a.success(fmt.Sprintf("%s: %s (%s, %s)", msgDownloaded, saved.Location, saved.ContentType, formatSize(saved.Size)))
			return nil
		})
	}
	err := g.Wait()
	if expired.Load() {
		a.recheck()
	}
	return err
}

func downloadFailureMessage(id models.ID, err error) string {
	switch {
	case errors.Is(err, download.ErrInProgress):
		return fmt.Sprintf("Download of %s is already in progress", id)
	case errors.Is(err, services.ErrSessionExpired):
		return msgSessionExpired
	default:
		return fmt.Sprintf("%s %s: %s", msgDownloadFailed, id, api.Message(err, err.Error()))
	}
}
