// Package download fetches prescription artifacts and hands them to a Sink.
// The doctor and patient paths share the same Downloader.
package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/common"
	"github.com/dmitrijs2005/pvault/internal/filex"
	"github.com/dmitrijs2005/pvault/internal/logging"
	"github.com/dmitrijs2005/pvault/internal/netx"
)

var (
	ErrDownloadFailed = errors.New("download failed")
	ErrInProgress     = errors.New("download already in progress")
	ErrEmptyResponse  = errors.New("empty response")
)

// Error is a failed download. It matches ErrDownloadFailed and the cause.
type Error struct {
	ID  models.ID
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("download %s failed: %v", e.ID, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrDownloadFailed, e.Err}
}

// ArtifactAPI is the RemoteAPI call the downloader depends on.
type ArtifactAPI interface {
	Download(ctx context.Context, id models.ID) (*api.Artifact, error)
}

// Sink persists a blob under name and returns where it ended up.
type Sink interface {
	Save(ctx context.Context, name string, blob api.Blob) (string, error)
}

// Saved describes a completed download.
type Saved struct {
	ID          models.ID
	Name        string
	Location    string
	ContentType string
	Size        int
}

// Recorder keeps a ledger of completed downloads.
type Recorder interface {
	Record(ctx context.Context, rec models.DownloadRecord) error
}

type Downloader struct {
	api      ArtifactAPI
	sink     Sink
	tracker  *Tracker
	recorder Recorder
	log      logging.Logger
}

type Option func(*Downloader)

// WithTracker shares a tracker between downloaders.
func WithTracker(t *Tracker) Option {
	return func(d *Downloader) { d.tracker = t }
}

// WithRecorder appends every completed download to r. A failed append is
// logged and does not fail the download.
func WithRecorder(r Recorder) Option {
	return func(d *Downloader) { d.recorder = r }
}

func WithLogger(l logging.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.log = l
		}
	}
}

func New(a ArtifactAPI, sink Sink, opts ...Option) *Downloader {
	d := &Downloader{api: a, sink: sink, tracker: NewTracker(), log: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("component", "download")
	return d
}

// Tracker exposes the per-id in-progress indicators.
func (d *Downloader) Tracker() *Tracker { return d.tracker }

// Download fetches id and saves it as suggestedFileName, falling back to
// the server-provided name and then to a generic one. Downloads of
// different ids run independently; a second download of an id that is
// still in flight fails with ErrInProgress.
func (d *Downloader) Download(ctx context.Context, id models.ID, suggestedFileName string) (Saved, error) {
	if !d.tracker.Start(id) {
		return Saved{}, fmt.Errorf("download %s: %w", id, ErrInProgress)
	}
	defer d.tracker.Done(id)

	artifact, err := d.api.Download(ctx, id)
	if err != nil {
		return Saved{}, d.fail(ctx, id, err)
	}
	blob, err := normalize(artifact)
	if err != nil {
		return Saved{}, d.fail(ctx, id, err)
	}

	name := FileName(suggestedFileName, artifact.FileName)
	location, err := d.sink.Save(ctx, name, blob)
	if err != nil {
		return Saved{}, d.fail(ctx, id, err)
	}

	saved := Saved{ID: id, Name: name, Location: location, ContentType: blob.ContentType, Size: len(blob.Data)}
	d.log.Info(ctx, "artifact saved", "id", id, "location", location, "bytes", saved.Size)
	d.record(ctx, saved)
	return saved, nil
}

func (d *Downloader) record(ctx context.Context, s Saved) {
	if d.recorder == nil {
		return
	}
	err := d.recorder.Record(ctx, models.DownloadRecord{
		ArtifactID:  s.ID,
		Name:        s.Name,
		Location:    s.Location,
		ContentType: s.ContentType,
		Size:        s.Size,
		SavedAt:     time.Now(),
	})
	if err != nil {
		d.log.Warn(ctx, "could not record download", "id", s.ID, "error", err)
	}
}

func (d *Downloader) fail(ctx context.Context, id models.ID, err error) error {
	d.log.Warn(ctx, "download failed", "id", id, "error", err)
	return &Error{ID: id, Err: err}
}

// normalize turns either response shape into one Blob: a ready-made blob is
// taken as is, raw bytes are paired with their separate content type. A
// missing type becomes application/octet-stream.
func normalize(a *api.Artifact) (api.Blob, error) {
	if a == nil {
		return api.Blob{}, ErrEmptyResponse
	}
	var blob api.Blob
	if a.Blob != nil {
		blob = *a.Blob
	} else {
		blob = api.Blob{Data: a.Body, ContentType: a.ContentType}
	}
	blob.ContentType = netx.ContentTypeOr(blob.ContentType, netx.DefaultContentType)
	return blob, nil
}

// FileName picks the name to save under: suggested, then the server's,
// then "prescription". The result is always a bare base name.
func FileName(suggested, fromServer string) string {
	for _, candidate := range []string{suggested, fromServer} {
		if name := filex.SafeBaseName(candidate, ""); name != "" {
			return name
		}
	}
	return common.DefaultArtifactName
}
