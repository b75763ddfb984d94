package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/pvault/internal/client/guard"
	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/common"
)

type fakeExec struct {
	loggedIn bool

	calls   []string
	routes  []string
	args    []string
	doctors []models.ID
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }

func (f *fakeExec) navigate(route guard.Route) bool {
	d := guard.Check(route, f, common.RouteDoctorLogin)
	if !d.Allowed() {
		f.routes = append(f.routes, d.Redirect)
		return false
	}
	f.routes = append(f.routes, route.Path)
	return true
}

// IsAuthenticated lets the fake act as the guard's session reader.
func (f *fakeExec) IsAuthenticated() bool { return f.loggedIn }

func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) WhoAmI(ctx context.Context) error {
	f.calls = append(f.calls, "whoami")
	return nil
}
func (f *fakeExec) List(ctx context.Context, doctorID models.ID, term string) error {
	f.calls = append(f.calls, "list")
	f.args = append(f.args, term)
	f.doctors = append(f.doctors, doctorID)
	return nil
}
func (f *fakeExec) Upload(ctx context.Context) error {
	f.calls = append(f.calls, "upload")
	return nil
}
func (f *fakeExec) Download(ctx context.Context, ids []string) error {
	f.calls = append(f.calls, "download")
	f.args = append(f.args, strings.Join(ids, ","))
	return nil
}
func (f *fakeExec) History(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "history")
	f.args = append(f.args, strings.Join(args, ","))
	return nil
}
func (f *fakeExec) Patient(ctx context.Context) error {
	f.calls = append(f.calls, "patient")
	return nil
}

func capturePrintln(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) { return fmt.Fprintln(&buf, a...) }
	t.Cleanup(func() { printlnFn = origPrint })
	return &buf
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	out := capturePrintln(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"whoami",
		"list alice smith",
		"upload",
		"download 3 4",
		"l",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{loggedIn: false}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(input))

	assert.Equal(t, []string{"login", "whoami", "list", "upload", "download", "list"}, exec.calls)
	assert.Equal(t, []string{"alice smith", "3,4", ""}, exec.args)
	assert.Equal(t, []string{
		common.RouteDoctorLogin,
		common.RouteDoctorDashboard,
		common.RouteDoctorPrescriptions,
		common.RouteDoctorUpload,
		common.RouteDoctorPrescriptions,
		common.RouteDoctorPrescriptions,
	}, exec.routes)

	s := out.String()
	assert.Contains(t, s, "pv status > ")
	assert.Contains(t, s, "Available commands: register, login, patient, exit")
	assert.Contains(t, s, "Available commands: whoami")
	assert.Contains(t, s, "Unknown command: foobar")
	assert.Contains(t, s, "Bye!")
}

func TestRunREPL_GuardBlocksProtectedCommands(t *testing.T) {
	capturePrintln(t)

	input := strings.NewReader("whoami\nlist\nupload\ndownload 1\npatient\nquit\n")
	exec := &fakeExec{loggedIn: false}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(input))

	assert.Equal(t, []string{"patient"}, exec.calls)
	assert.Equal(t, []string{
		common.RouteDoctorLogin,
		common.RouteDoctorLogin,
		common.RouteDoctorLogin,
		common.RouteDoctorLogin,
		common.RoutePatientPrescription,
	}, exec.routes)
}

func TestRunREPL_LogoutTakesEffectOnNextCommand(t *testing.T) {
	capturePrintln(t)

	input := strings.NewReader("list\nlogout\nlist\n")
	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(input))

	assert.Equal(t, []string{"list", "logout"}, exec.calls)
	assert.Equal(t, common.RouteDoctorLogin, exec.routes[len(exec.routes)-1])
}

func TestRunREPL_EOFAndBlankLines(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("\n   \n")))

	assert.Empty(t, exec.calls)
}

func TestRunREPL_ListDoctorFlag(t *testing.T) {
	out := capturePrintln(t)

	input := strings.NewReader("list --doctor 42 alice\nlist --doctor=7\nlist --doctor\n")
	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(input))

	assert.Equal(t, []string{"list", "list"}, exec.calls)
	assert.Equal(t, []models.ID{"42", "7"}, exec.doctors)
	assert.Equal(t, []string{"alice", ""}, exec.args)
	assert.Contains(t, out.String(), usageList)
}

func TestParseListArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		doctor  models.ID
		rest    []string
		wantErr bool
	}{
		{"none", nil, "", nil, false},
		{"term only", []string{"alice", "smith"}, "", []string{"alice", "smith"}, false},
		{"flag after term", []string{"alice", "--doctor", "3"}, "3", []string{"alice"}, false},
		{"equals form", []string{"--doctor=9"}, "9", nil, false},
		{"missing value", []string{"--doctor"}, "", nil, true},
		{"empty equals", []string{"--doctor="}, "", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doctor, rest, err := parseListArgs(tc.args)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.doctor, doctor)
			assert.Equal(t, tc.rest, rest)
		})
	}
}
