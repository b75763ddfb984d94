package verification

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/client/download"
	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePatientAPI struct {
	mu         sync.Mutex
	requestErr error
	verifyFn   func(email, otp string) ([]models.PrescriptionSummary, error)
	gate       chan struct{}
	entered    chan struct{}

	requested []string
	verified  [][2]string
}

func (f *fakePatientAPI) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakePatientAPI) RequestOtp(_ context.Context, email string) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return f.requestErr
	}
	f.requested = append(f.requested, email)
	return nil
}

func (f *fakePatientAPI) VerifyOtp(_ context.Context, email, otp string) ([]models.PrescriptionSummary, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	res, err := f.verifyFn(email, otp)
	if err == nil {
		f.verified = append(f.verified, [2]string{email, otp})
	}
	return res, err
}

type fakeDownloader struct {
	err   error
	calls []string
}

func (d *fakeDownloader) Download(_ context.Context, id models.ID, name string) (download.Saved, error) {
	d.calls = append(d.calls, string(id)+":"+name)
	if d.err != nil {
		return download.Saved{}, d.err
	}
	return download.Saved{ID: id, Name: name, Location: "/tmp/" + name}, nil
}

type recorder struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (r *recorder) Success(m string) { r.mu.Lock(); r.successes = append(r.successes, m); r.mu.Unlock() }
func (r *recorder) Failure(m string) { r.mu.Lock(); r.failures = append(r.failures, m); r.mu.Unlock() }

func acceptOnly(otp string, results []models.PrescriptionSummary) func(string, string) ([]models.PrescriptionSummary, error) {
	return func(_, got string) ([]models.PrescriptionSummary, error) {
		if got != otp {
			return nil, &api.Error{Op: "verify otp", Status: 401, Message: "Invalid or expired OTP"}
		}
		return results, nil
	}
}

func TestRequestOtp_TransportFailureKeepsEmail(t *testing.T) {
	fake := &fakePatientAPI{requestErr: errors.Join(api.ErrUnavailable, errors.New("dial tcp: connection refused"))}
	rec := &recorder{}
	f := New(fake, &fakeDownloader{}, WithNotifier(rec))

	err := f.RequestOtp(context.Background(), "a@b.com")
	require.ErrorIs(t, err, api.ErrUnavailable)

	st := f.State()
	assert.Equal(t, AwaitingEmail, st.Step)
	assert.Equal(t, "a@b.com", st.Email)
	assert.Equal(t, MsgOtpSendFailed, st.LastError)
	assert.False(t, st.Busy)
	assert.Equal(t, []string{MsgOtpSendFailed}, rec.failures)
}

func TestVerifyOtp_WrongThenRightCode(t *testing.T) {
	fake := &fakePatientAPI{verifyFn: acceptOnly("123456", []models.PrescriptionSummary{})}
	rec := &recorder{}
	f := New(fake, &fakeDownloader{}, WithNotifier(rec))
	ctx := context.Background()

	require.NoError(t, f.RequestOtp(ctx, "a@b.com"))
	assert.Equal(t, AwaitingOtp, f.State().Step)

	err := f.VerifyOtp(ctx, "a@b.com", "000000")
	require.ErrorIs(t, err, api.ErrUnauthenticated)
	st := f.State()
	assert.Equal(t, AwaitingOtp, st.Step)
	assert.Equal(t, "000000", st.Otp)
	assert.Equal(t, "Invalid or expired OTP", st.LastError)
	assert.Nil(t, st.Results)

	require.NoError(t, f.VerifyOtp(ctx, "a@b.com", "123456"))
	st = f.State()
	assert.Equal(t, Verified, st.Step)
	assert.NotNil(t, st.Results)
	assert.Empty(t, st.Results)
	assert.Empty(t, st.LastError)

	assert.Equal(t, []string{MsgOtpSent, MsgOtpVerified}, rec.successes)
	assert.Equal(t, []string{"Invalid or expired OTP"}, rec.failures)
}

func TestVerifyOtp_NoPrescriptionsIsEmptyNotUnset(t *testing.T) {
	for name, answer := range map[string][]models.PrescriptionSummary{
		"nil":   nil,
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			f := New(&fakePatientAPI{verifyFn: acceptOnly("1", answer)}, &fakeDownloader{})
			ctx := context.Background()

			require.NoError(t, f.RequestOtp(ctx, "a@b.com"))
			assert.Nil(t, f.State().Results)

			require.NoError(t, f.VerifyOtp(ctx, "a@b.com", "1"))
			st := f.State()
			assert.Equal(t, Verified, st.Step)
			require.NotNil(t, st.Results)
			assert.Len(t, st.Results, 0)
		})
	}
}

func TestVerifyOtp_FallbackMessage(t *testing.T) {
	fake := &fakePatientAPI{verifyFn: func(string, string) ([]models.PrescriptionSummary, error) {
		return nil, api.ErrUnavailable
	}}
	f := New(fake, &fakeDownloader{})
	ctx := context.Background()

	require.NoError(t, f.RequestOtp(ctx, "a@b.com"))
	require.Error(t, f.VerifyOtp(ctx, "a@b.com", "1"))
	assert.Equal(t, MsgOtpInvalid, f.State().LastError)
}

func TestBackPreservesEmail(t *testing.T) {
	fake := &fakePatientAPI{verifyFn: acceptOnly("1", nil)}
	f := New(fake, &fakeDownloader{})
	ctx := context.Background()

	require.NoError(t, f.RequestOtp(ctx, "  a@b.com "))
	require.Error(t, f.VerifyOtp(ctx, "a@b.com", "9"))
	require.NoError(t, f.Back())

	st := f.State()
	assert.Equal(t, State{Step: AwaitingEmail, Email: "a@b.com"}, st)

	require.ErrorIs(t, f.Back(), ErrWrongStep)
}

func TestResetClearsEverything(t *testing.T) {
	results := []models.PrescriptionSummary{{ID: "p1", FileName: "scan.pdf"}}
	fake := &fakePatientAPI{verifyFn: acceptOnly("1", results)}
	f := New(fake, &fakeDownloader{})
	ctx := context.Background()

	require.ErrorIs(t, f.Reset(), ErrWrongStep)
	require.NoError(t, f.RequestOtp(ctx, "a@b.com"))
	require.ErrorIs(t, f.Reset(), ErrWrongStep)
	require.NoError(t, f.VerifyOtp(ctx, "a@b.com", "1"))
	require.NoError(t, f.Reset())

	assert.Equal(t, State{}, f.State())
}

func TestValidation(t *testing.T) {
	fake := &fakePatientAPI{verifyFn: acceptOnly("1", nil)}
	f := New(fake, &fakeDownloader{})
	ctx := context.Background()

	err := f.RequestOtp(ctx, "   ")
	require.ErrorIs(t, err, common.ErrorEmptyEmail)
	assert.Equal(t, MsgEmailRequired, f.State().LastError)
	assert.Empty(t, fake.requested, "no call for an empty email")

	require.NoError(t, f.RequestOtp(ctx, "a@b.com"))
	assert.Empty(t, f.State().LastError, "success clears the previous error")

	err = f.VerifyOtp(ctx, "a@b.com", "")
	require.ErrorIs(t, err, common.ErrorEmptyOTP)
	assert.Equal(t, AwaitingOtp, f.State().Step)

	require.ErrorIs(t, f.VerifyOtp(ctx, "other@b.com", "1"), ErrEmailMismatch)
	assert.Empty(t, fake.verified)
}

func TestWrongStepActions(t *testing.T) {
	fake := &fakePatientAPI{verifyFn: acceptOnly("1", nil)}
	f := New(fake, &fakeDownloader{})
	ctx := context.Background()

	require.ErrorIs(t, f.VerifyOtp(ctx, "a@b.com", "1"), ErrWrongStep)
	_, err := f.Download(ctx, "p1", "")
	require.ErrorIs(t, err, ErrWrongStep)

	require.NoError(t, f.RequestOtp(ctx, "a@b.com"))
	require.ErrorIs(t, f.RequestOtp(ctx, "a@b.com"), ErrWrongStep)
	assert.Len(t, fake.requested, 1)
}

func TestBusyRejectsReentry(t *testing.T) {
	fake := &fakePatientAPI{
		verifyFn: acceptOnly("1", nil),
		gate:     make(chan struct{}),
		entered:  make(chan struct{}, 1),
	}
	f := New(fake, &fakeDownloader{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.RequestOtp(ctx, "a@b.com") }()
	<-fake.entered

	assert.True(t, f.State().Busy)
	require.ErrorIs(t, f.RequestOtp(ctx, "a@b.com"), ErrBusy)
	require.ErrorIs(t, f.Back(), ErrBusy)
	require.ErrorIs(t, f.VerifyOtp(ctx, "a@b.com", "1"), ErrBusy)

	close(fake.gate)
	require.NoError(t, <-done)
	st := f.State()
	assert.False(t, st.Busy)
	assert.Equal(t, AwaitingOtp, st.Step)
	assert.Len(t, fake.requested, 1)
}

func TestCloseDiscardsLateResult(t *testing.T) {
	fake := &fakePatientAPI{
		verifyFn: acceptOnly("1", []models.PrescriptionSummary{{ID: "p1"}}),
		gate:     make(chan struct{}),
		entered:  make(chan struct{}, 1),
	}
	rec := &recorder{}
	f := New(fake, &fakeDownloader{}, WithNotifier(rec))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.RequestOtp(ctx, "a@b.com") }()
	<-fake.entered
	f.Close()
	close(fake.gate)

	require.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, State{}, f.State())
	assert.True(t, f.Closed())
	assert.Empty(t, rec.successes)
	require.ErrorIs(t, f.RequestOtp(ctx, "a@b.com"), ErrClosed)
}

func TestDownloadOnlyVerifiedIDs(t *testing.T) {
	results := []models.PrescriptionSummary{{ID: "p1", FileName: "scan.pdf"}, {ID: "p2", FileName: "xray.png"}}
	fake := &fakePatientAPI{verifyFn: acceptOnly("1", results)}
	dl := &fakeDownloader{}
	rec := &recorder{}
	f := New(fake, dl, WithNotifier(rec))
	ctx := context.Background()

	require.NoError(t, f.RequestOtp(ctx, "a@b.com"))
	require.NoError(t, f.VerifyOtp(ctx, "a@b.com", "1"))

	saved, err := f.Download(ctx, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "scan.pdf", saved.Name)

	_, err = f.Download(ctx, "p2", "custom.png")
	require.NoError(t, err)

	_, err = f.Download(ctx, "p9", "")
	require.ErrorIs(t, err, ErrUnknownArtifact)
	assert.Equal(t, []string{"p1:scan.pdf", "p2:custom.png"}, dl.calls)

	dl.err = &download.Error{ID: "p1", Err: api.ErrNotFound}
	_, err = f.Download(ctx, "p1", "")
	require.ErrorIs(t, err, download.ErrDownloadFailed)
	assert.Equal(t, []string{MsgDownloadFailed}, rec.failures)
	assert.Equal(t, Verified, f.State().Step, "download failure leaves the flow alone")
}

func TestStateReturnsCopy(t *testing.T) {
	results := []models.PrescriptionSummary{{ID: "p1", FileName: "scan.pdf"}}
	fake := &fakePatientAPI{verifyFn: acceptOnly("1", results)}
	f := New(fake, &fakeDownloader{})
	ctx := context.Background()

	require.NoError(t, f.RequestOtp(ctx, "a@b.com"))
	require.NoError(t, f.VerifyOtp(ctx, "a@b.com", "1"))

	st := f.State()
	st.Results[0].FileName = "tampered"
	results[0].FileName = "tampered too"
	assert.Equal(t, "scan.pdf", f.State().Results[0].FileName)
}

// Random action sequences never break the step invariants.
func TestInvariantsUnderRandomActions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	emails := []string{"a@b.com", "c@d.com", ""}
	otps := []string{"1", "2", ""}

	for run := 0; run < 200; run++ {
		fake := &fakePatientAPI{}
		fake.verifyFn = func(email, otp string) ([]models.PrescriptionSummary, error) {
			if rng.Intn(2) == 0 {
				return nil, api.ErrValidation
			}
			return []models.PrescriptionSummary{{ID: models.ID(email)}}, nil
		}
		f := New(fake, &fakeDownloader{})
		ctx := context.Background()
		lastRequested := ""

		for i := 0; i < 20; i++ {
			fake.requestErr = nil
			if rng.Intn(3) == 0 {
				fake.requestErr = api.ErrUnavailable
			}
			email := emails[rng.Intn(len(emails))]
			switch rng.Intn(5) {
			case 0:
				if f.RequestOtp(ctx, email) == nil {
					lastRequested = email
				}
			case 1:
				_ = f.VerifyOtp(ctx, email, otps[rng.Intn(len(otps))])
			case 2:
				_ = f.Back()
			case 3:
				_ = f.Reset()
			case 4:
				_, _ = f.Download(ctx, models.ID(email), "")
			}

			st := f.State()
			if st.Step != AwaitingEmail {
				require.NotEmpty(t, st.Email)
				require.Equal(t, lastRequested, st.Email, "otp step only for the last requested email")
			}
			if st.Step == Verified {
				require.NotNil(t, st.Results)
				require.Contains(t, fake.verified, [2]string{st.Email, st.Otp})
			} else {
				require.Nil(t, st.Results)
			}
		}
	}
}
