package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/client/services"
	"github.com/dmitrijs2005/pvault/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

const (
	msgAuthFailed      = "Authentication failed"
	msgCredentialsReq  = "Email and password are required"
	msgLoggedIn        = "Successfully logged in!"
	msgRegistered      = "Successfully registered!"
	msgLoggedOut       = "Logged out"
	msgProfileFailed   = "Failed to load profile"
	msgSessionExpired  = "Unauthorized: Please login again"
	defaultPromptEmail = "Enter email"
)

// Register prompts for name, email and password and creates a doctor
// account. A successful registration also starts the session.
//
// The password byte slice is securely wiped before returning.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	doctor, err := a.doctors.Register(ctx, name, email, string(password))
	if err != nil {
		a.log.Warn(ctx, "registration failed", "error", err)
		a.failure(api.Message(err, msgAuthFailed))
		return err
	}
	a.success(msgRegistered)
	a.route = common.RouteDoctorDashboard
	a.say("Welcome, %s", doctor.Name)
	return nil
}

// Login prompts for credentials and starts a doctor session.
//
// The password is securely wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	doctor, err := a.doctors.Login(ctx, email, string(password))
	if err != nil {
		a.log.Warn(ctx, "login failed", "error", err)
		a.failure(api.Message(err, msgAuthFailed))
		return err
	}
	a.success(msgLoggedIn)
	a.route = common.RouteDoctorDashboard
	a.say("Welcome, %s", doctor.Name)
	return nil
}

// credentials reads email and password. Both are required; the caller wipes
// the password.
func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, defaultPromptEmail, a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return "", nil, err
	}
	if email == "" || len(password) == 0 {
		common.WipeByteArray(password)
		a.failure(msgCredentialsReq)
		if email == "" {
			return "", nil, common.ErrorEmptyEmail
		}
		return "", nil, common.ErrorEmptyPassword
	}
	return email, password, nil
}

// Logout ends the doctor session. It is safe to call when not logged in.
func (a *App) Logout(ctx context.Context) error {
	a.sessions.Logout(ctx)
	a.route = common.RouteDoctorLogin
	a.say(msgLoggedOut)
	return nil
}

// WhoAmI prints the server-side profile of the signed-in doctor.
func (a *App) WhoAmI(ctx context.Context) error {
	p, err := a.doctors.Profile(ctx)
	if err != nil {
		a.reportDoctorError(err, msgProfileFailed)
		return err
	}
	a.say("Name:           %s", orNA(p.Name))
	a.say("Email:          %s", orNA(p.Email))
	a.say("Specialization: %s", orNA(p.Specialization))
	a.say("Phone:          %s", orNA(p.Phone))
	return nil
}

// reportDoctorError prints err and, when it ended the session, re-runs the
// guard so the user lands on the login route.
func (a *App) reportDoctorError(err error, fallback string) {
	if errors.Is(err, services.ErrSessionExpired) {
		a.failure(msgSessionExpired)
		a.recheck()
		return
	}
	a.failure(api.Message(err, fallback))
}
