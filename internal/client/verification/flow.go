// Package verification drives the anonymous patient path: the patient
// submits an email, receives a one-time code, and exchanges it for the list
// of their prescriptions.
//
// A Flow is single-use per visitor. Transitions are strictly sequential:
// while a request is in flight every other action is rejected with ErrBusy.
// After Close, results that arrive late are dropped and every action fails
// with ErrClosed.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/client/download"
	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/common"
	"github.com/dmitrijs2005/pvault/internal/logging"
)

type Step int

const (
	AwaitingEmail Step = iota
	AwaitingOtp
	Verified
)

func (s Step) String() string {
	switch s {
	case AwaitingEmail:
		return "awaiting email"
	case AwaitingOtp:
		return "awaiting otp"
	case Verified:
		return "verified"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// User-facing messages.
const (
	MsgEmailRequired  = "Email is required"
	MsgOtpRequired    = "OTP is required"
	MsgOtpSendFailed  = "Failed to send OTP"
	MsgOtpInvalid     = "Invalid OTP"
	MsgOtpSent        = "OTP sent successfully!"
	MsgOtpVerified    = "OTP verified successfully!"
	MsgDownloadFailed = "Failed to download prescription"
)

var (
	ErrBusy            = errors.New("a request is already in flight")
	ErrClosed          = errors.New("verification flow closed")
	ErrWrongStep       = errors.New("action not allowed in this step")
	ErrEmailMismatch   = errors.New("email differs from the one the otp was sent to")
	ErrUnknownArtifact = errors.New("prescription is not in the verified results")
)

// State is a snapshot of the flow. Email is non-empty whenever Step is past
// AwaitingEmail; Results is set only in Verified.
type State struct {
	Step      Step
	Email     string
	Otp       string
	Results   []models.PrescriptionSummary
	LastError string
	Busy      bool
}

// PatientAPI is the RemoteAPI surface used by the flow.
type PatientAPI interface {
	RequestOtp(ctx context.Context, email string) error
	VerifyOtp(ctx context.Context, email, otp string) ([]models.PrescriptionSummary, error)
}

type Downloader interface {
	Download(ctx context.Context, id models.ID, suggestedFileName string) (download.Saved, error)
}

// Notifier receives transient notifications, shown next to the inline
// LastError.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Failure(string) {}

type Flow struct {
	api    PatientAPI
	dl     Downloader
	notify Notifier
	log    logging.Logger

	mu     sync.Mutex
	state  State
	closed bool
}

type Option func(*Flow)

func WithNotifier(n Notifier) Option {
	return func(f *Flow) {
		if n != nil {
			f.notify = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

// New returns a flow in AwaitingEmail.
func New(a PatientAPI, dl Downloader, opts ...Option) *Flow {
	f := &Flow{api: a, dl: dl, notify: nopNotifier{}, log: logging.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "verification")
	return f
}

// State returns a copy of the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	if s.Results != nil {
		s.Results = append(make([]models.PrescriptionSummary, 0, len(s.Results)), s.Results...)
	}
	return s
}

// admit checks that an action for step may start; callers hold mu.
func (f *Flow) admit(step Step) error {
	switch {
	case f.closed:
		return ErrClosed
	case f.state.Busy:
		return ErrBusy
	case f.state.Step != step:
		return fmt.Errorf("%w: %s", ErrWrongStep, f.state.Step)
	}
	return nil
}

// settle re-acquires mu after a remote call. It reports false, with mu
// released, when the flow was closed meanwhile.
func (f *Flow) settle() bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	f.state.Busy = false
	return true
}

// RequestOtp asks the server to send a code to email. On failure the flow
// stays in AwaitingEmail with LastError set.
func (f *Flow) RequestOtp(ctx context.Context, email string) error {
	f.mu.Lock()
	if err := f.admit(AwaitingEmail); err != nil {
		f.mu.Unlock()
		return err
	}
	email = strings.TrimSpace(email)
	f.state.Email = email
	if email == "" {
		f.state.LastError = MsgEmailRequired
		f.mu.Unlock()
		f.notify.Failure(MsgEmailRequired)
		return fmt.Errorf("request otp: %w", common.ErrorEmptyEmail)
	}
	f.state.Busy = true
	f.mu.Unlock()

	err := f.api.RequestOtp(ctx, email)

	if !f.settle() {
		f.log.Debug(ctx, "discarding otp request result after close")
		return ErrClosed
	}
	if err != nil {
		msg := api.Message(err, MsgOtpSendFailed)
		f.state.LastError = msg
		f.mu.Unlock()
		f.log.Warn(ctx, "otp request failed", "error", err)
		f.notify.Failure(msg)
		return err
	}
	f.state.Step = AwaitingOtp
	f.state.Otp = ""
	f.state.LastError = ""
	f.mu.Unlock()

	f.log.Info(ctx, "otp requested")
	f.notify.Success(MsgOtpSent)
	return nil
}

// Back returns from AwaitingOtp to AwaitingEmail keeping the email.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.admit(AwaitingOtp); err != nil {
		return err
	}
	f.state.Step = AwaitingEmail
	f.state.Otp = ""
	f.state.LastError = ""
	return nil
}

// VerifyOtp exchanges otp for the prescriptions of the email the code was
// sent to. An empty result list is a successful verification.
func (f *Flow) VerifyOtp(ctx context.Context, email, otp string) error {
	f.mu.Lock()
	if err := f.admit(AwaitingOtp); err != nil {
		f.mu.Unlock()
		return err
	}
	email = strings.TrimSpace(email)
	if email != f.state.Email {
		f.mu.Unlock()
		return ErrEmailMismatch
	}
	otp = strings.TrimSpace(otp)
	f.state.Otp = otp
	if otp == "" {
		f.state.LastError = MsgOtpRequired
		f.mu.Unlock()
		f.notify.Failure(MsgOtpRequired)
		return fmt.Errorf("verify otp: %w", common.ErrorEmptyOTP)
	}
	f.state.Busy = true
	f.mu.Unlock()

	results, err := f.api.VerifyOtp(ctx, email, otp)

	if !f.settle() {
		f.log.Debug(ctx, "discarding otp verification result after close")
		return ErrClosed
	}
	if err != nil {
		msg := api.Message(err, MsgOtpInvalid)
		f.state.LastError = msg
		f.mu.Unlock()
		f.log.Warn(ctx, "otp verification failed", "error", err)
		f.notify.Failure(msg)
		return err
	}
	f.state.Step = Verified
	// verified with no prescriptions stays distinct from unset
	f.state.Results = append(make([]models.PrescriptionSummary, 0, len(results)), results...)
	f.state.LastError = ""
	f.mu.Unlock()

	f.log.Info(ctx, "otp verified", "results", len(results))
	f.notify.Success(MsgOtpVerified)
	return nil
}

// Download saves one of the verified prescriptions. fileName may be empty,
// in which case the listed file name is suggested.
func (f *Flow) Download(ctx context.Context, id models.ID, fileName string) (download.Saved, error) {
	f.mu.Lock()
	if err := f.admit(Verified); err != nil {
		f.mu.Unlock()
		return download.Saved{}, err
	}
	var found *models.PrescriptionSummary
	for i := range f.state.Results {
		if f.state.Results[i].ID == id {
			found = &f.state.Results[i]
			break
		}
	}
	if found == nil {
		f.mu.Unlock()
		return download.Saved{}, fmt.Errorf("%w: %s", ErrUnknownArtifact, id)
	}
	if fileName == "" {
		fileName = found.FileName
	}
	f.mu.Unlock()

	saved, err := f.dl.Download(ctx, id, fileName)
	if err != nil {
		f.notify.Failure(MsgDownloadFailed)
		return download.Saved{}, err
	}
	f.notify.Success("Saved " + saved.Location)
	return saved, nil
}

// Reset starts over from a blank AwaitingEmail. Only valid once verified.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.admit(Verified); err != nil {
		return err
	}
	f.state = State{}
	return nil
}

// Close ends the flow. Results of calls still in flight are discarded.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.state = State{}
}

func (f *Flow) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
