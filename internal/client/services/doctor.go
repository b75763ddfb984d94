// Package services holds the doctor-side application logic of the CLI:
// authentication, listing, search, upload and download, plus the policy
// that a 401 on any doctor call ends the session.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/client/download"
	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/common"
	"github.com/dmitrijs2005/pvault/internal/logging"
)

const defaultDoctorName = "Doctor"

var (
	// ErrSessionExpired is returned after a 401 has ended the session.
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrNoToken        = errors.New("authentication response carried no token")
	ErrNotLoggedIn    = errors.New("not logged in")
)

// DoctorAPI is the RemoteAPI surface used by the doctor views.
type DoctorAPI interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
	DoctorProfile(ctx context.Context, id models.ID) (*models.DoctorProfile, error)
	Prescriptions(ctx context.Context) ([]models.PrescriptionSummary, error)
	DoctorPrescriptions(ctx context.Context, doctorID models.ID) ([]models.PrescriptionSummary, error)
	Upload(ctx context.Context, form models.UploadForm) (*models.UploadResult, error)
}

// SessionStore is the part of session.Store the service writes to.
type SessionStore interface {
	Login(ctx context.Context, token string, doctor models.Doctor) error
	Logout(ctx context.Context)
	Current() (models.Session, bool)
}

type ArtifactDownloader interface {
	Download(ctx context.Context, id models.ID, suggestedFileName string) (download.Saved, error)
}

// DoctorService defines the doctor operations of the CLI.
//
// Contract:
//   - Login/Register: authenticate and, when a token comes back, start a session.
//   - Profile, Prescriptions, PrescriptionsOf, Upload, Download: authenticated
//     calls. A 401 logs the session out and yields ErrSessionExpired.
//   - 403 and 404 are returned unchanged and leave the session alone.
type DoctorService interface {
	Login(ctx context.Context, email, password string) (models.Doctor, error)
	Register(ctx context.Context, name, email, password string) (models.Doctor, error)
	Profile(ctx context.Context) (*models.DoctorProfile, error)
	Prescriptions(ctx context.Context) ([]models.PrescriptionSummary, error)
	PrescriptionsOf(ctx context.Context, doctorID models.ID) ([]models.PrescriptionSummary, error)
	Upload(ctx context.Context, form models.UploadForm) (*models.UploadResult, error)
	Download(ctx context.Context, id models.ID, fileName string) (download.Saved, error)
}

type doctorService struct {
	api        DoctorAPI
	sessions   SessionStore
	downloader ArtifactDownloader
	log        logging.Logger
}

func NewDoctorService(a DoctorAPI, sessions SessionStore, dl ArtifactDownloader, log logging.Logger) DoctorService {
	if log == nil {
		log = logging.Nop()
	}
	return &doctorService{api: a, sessions: sessions, downloader: dl, log: log.With("component", "doctor")}
}

func (s *doctorService) Login(ctx context.Context, email, password string) (models.Doctor, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return models.Doctor{}, err
	}
	return s.startSession(ctx, resp, "", email)
}

func (s *doctorService) Register(ctx context.Context, name, email, password string) (models.Doctor, error) {
	resp, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return models.Doctor{}, err
	}
	return s.startSession(ctx, resp, name, email)
}

func (s *doctorService) startSession(ctx context.Context, resp *models.AuthResponse, name, email string) (models.Doctor, error) {
	if resp == nil || resp.Token == "" {
		return models.Doctor{}, ErrNoToken
	}
	doctor := ProfileFromAuth(resp, name, email)
	if err := s.sessions.Login(ctx, resp.Token, doctor); err != nil {
		return models.Doctor{}, fmt.Errorf("start session: %w", err)
	}
	s.log.Info(ctx, "doctor signed in", "doctor_id", doctor.ID)
	return doctor, nil
}

// ProfileFromAuth builds the session profile from an auth response. Flat
// fields win over the nested user object, which wins over what was typed.
func ProfileFromAuth(resp *models.AuthResponse, enteredName, enteredEmail string) models.Doctor {
	d := models.Doctor{ID: resp.ID, Name: resp.Name, Email: resp.Email}
	if u := resp.User; u != nil {
		d.ID = firstNonEmpty(d.ID, u.ID)
		d.Name = firstNonEmpty(d.Name, u.Name)
		d.Email = firstNonEmpty(d.Email, u.Email)
	}
	d.Email = firstNonEmpty(d.Email, enteredEmail)
	d.Name = firstNonEmpty(d.Name, enteredName, defaultDoctorName)
	return d
}

func firstNonEmpty[T ~string](values ...T) T {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// expire applies the 401 policy to err.
func (s *doctorService) expire(ctx context.Context, err error) error {
	if !errors.Is(err, api.ErrUnauthenticated) {
		return err
	}
	s.log.Warn(ctx, "server rejected the session token, logging out", "error", err)
	s.sessions.Logout(ctx)
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}

func (s *doctorService) Profile(ctx context.Context) (*models.DoctorProfile, error) {
	sess, ok := s.sessions.Current()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	p, err := s.api.DoctorProfile(ctx, sess.Doctor.ID)
	if err != nil {
		return nil, s.expire(ctx, err)
	}
	return p, nil
}

func (s *doctorService) Prescriptions(ctx context.Context) ([]models.PrescriptionSummary, error) {
	list, err := s.api.Prescriptions(ctx)
	if err != nil {
		return nil, s.expire(ctx, err)
	}
	return list, nil
}

func (s *doctorService) PrescriptionsOf(ctx context.Context, doctorID models.ID) ([]models.PrescriptionSummary, error) {
	list, err := s.api.DoctorPrescriptions(ctx, doctorID)
	if err != nil {
		return nil, s.expire(ctx, err)
	}
	return list, nil
}

// Upload checks the required fields locally before any network call.
func (s *doctorService) Upload(ctx context.Context, form models.UploadForm) (*models.UploadResult, error) {
	if missing := MissingUploadFields(form); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %w", common.ErrorMissingFields,
			api.Invalid("upload prescription", "Missing required fields: "+strings.Join(missing, ", ")))
	}
	res, err := s.api.Upload(ctx, form)
	if err != nil {
		return nil, s.expire(ctx, err)
	}
	s.log.Info(ctx, "prescription uploaded", "id", res.ID)
	return res, nil
}

// MissingUploadFields lists the required form fields that are empty.
func MissingUploadFields(form models.UploadForm) []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("patient name", form.PatientName)
	check("patient phone", form.PatientPhone)
	check("patient email", form.PatientEmail)
	if form.File == nil {
		missing = append(missing, "file")
	}
	return missing
}

func (s *doctorService) Download(ctx context.Context, id models.ID, fileName string) (download.Saved, error) {
	saved, err := s.downloader.Download(ctx, id, fileName)
	if err != nil {
		return download.Saved{}, s.expire(ctx, err)
	}
	return saved, nil
}

// Filter keeps prescriptions whose patient name, email, phone or file name
// contains term, ignoring case. An empty term keeps everything.
func Filter(list []models.PrescriptionSummary, term string) []models.PrescriptionSummary {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list
	}
	out := make([]models.PrescriptionSummary, 0, len(list))
	for _, p := range list {
		for _, field := range []string{p.PatientName, p.PatientEmail, p.PatientPhone, p.FileName} {
			if strings.Contains(strings.ToLower(field), term) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ListFailureMessage is the user-facing text for a failed listing.
func ListFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrSessionExpired), errors.Is(err, api.ErrUnauthenticated):
		return "Unauthorized: Please login again"
	case errors.Is(err, api.ErrForbidden):
		return "Forbidden: You don't have access to these prescriptions"
	case errors.Is(err, api.ErrNotFound):
		return "Doctor not found"
	default:
		return api.Message(err, "Failed to fetch prescriptions")
	}
}
