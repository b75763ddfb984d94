package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pvault/internal/client/guard"
	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	navigate(route guard.Route) bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context, doctorID models.ID, term string) error
	Upload(ctx context.Context) error
	Download(ctx context.Context, ids []string) error
	Patient(ctx context.Context) error
	History(ctx context.Context, args []string) error
}

type command struct {
	route *guard.Route
	run   func(ctx context.Context, a execIface, args []string) error
}

var (
	loginRoute         = &guard.Route{Path: common.RouteDoctorLogin}
	dashboardRoute     = &guard.Route{Path: common.RouteDoctorDashboard, RequiresDoctor: true}
	prescriptionsRoute = &guard.Route{Path: common.RouteDoctorPrescriptions, RequiresDoctor: true}
	uploadRoute        = &guard.Route{Path: common.RouteDoctorUpload, RequiresDoctor: true}
	patientRoute       = &guard.Route{Path: common.RoutePatientPrescription}
)

// commands maps REPL commands to routes. Commands with a nil route do not
// navigate.
var commands = map[string]command{
	"register": {loginRoute, func(ctx context.Context, a execIface, _ []string) error { return a.Register(ctx) }},
	"login":    {loginRoute, func(ctx context.Context, a execIface, _ []string) error { return a.Login(ctx) }},
	"logout":   {nil, func(ctx context.Context, a execIface, _ []string) error { return a.Logout(ctx) }},
	"whoami":   {dashboardRoute, func(ctx context.Context, a execIface, _ []string) error { return a.WhoAmI(ctx) }},
	"list": {prescriptionsRoute, func(ctx context.Context, a execIface, args []string) error {
		doctorID, rest, err := parseListArgs(args)
		if err != nil {
			printlnFn(err.Error())
			return nil
		}
		return a.List(ctx, doctorID, strings.Join(rest, " "))
	}},
	"upload": {uploadRoute, func(ctx context.Context, a execIface, _ []string) error { return a.Upload(ctx) }},
	"download": {prescriptionsRoute, func(ctx context.Context, a execIface, args []string) error {
		return a.Download(ctx, args)
	}},
	"history": {dashboardRoute, func(ctx context.Context, a execIface, args []string) error {
		return a.History(ctx, args)
	}},
	"patient": {patientRoute, func(ctx context.Context, a execIface, _ []string) error { return a.Patient(ctx) }},
}

func init() {
	commands["l"] = commands["list"]
}

// runREPL starts a simple read–eval–print loop for the PVault CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Before a command runs, its route goes
// through a.navigate; a denied navigation skips the command. The loop exits
// on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help              show available commands
//	  - register          create a doctor account
//	  - login             authenticate as a doctor
//	  - patient           access prescriptions with an email code
//	  - exit | quit       leave the program
//
//	Logged in, additionally:
//	  - whoami            show the doctor profile
//	  - list [--doctor <id>] [term]  list uploaded prescriptions, optionally filtered
//	  - upload            upload a prescription for a patient
//	  - download <id>...  download prescriptions concurrently
//	  - history [clear]   show or wipe the local download ledger
//	  - logout            end the session
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pv %s > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, (l)ist [--doctor <id>] [term], upload, download <id>..., history [clear], patient, logout, exit")
			} else {
				printlnFn("Available commands: register, login, patient, exit")
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		c, ok := commands[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if c.route != nil && !a.navigate(*c.route) {
			continue
		}
		_ = c.run(ctx, a, args)
	}
}

// parseListArgs splits "--doctor <id>" (or "--doctor=<id>") off the list
// arguments.
func parseListArgs(args []string) (models.ID, []string, error) {
	var (
		doctorID models.ID
		rest     []string
	)
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--doctor":
			if i+1 >= len(args) {
				return "", nil, errors.New(usageList)
			}
			i++
			doctorID = models.ID(args[i])
		case strings.HasPrefix(arg, "--doctor="):
			doctorID = models.ID(strings.TrimPrefix(arg, "--doctor="))
			if doctorID == "" {
				return "", nil, errors.New(usageList)
			}
		default:
			rest = append(rest, arg)
		}
	}
	return doctorID, rest, nil
}
