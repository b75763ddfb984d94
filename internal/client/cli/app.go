package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/pvault/internal/client/download"
	"github.com/dmitrijs2005/pvault/internal/client/guard"
	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/client/services"
	"github.com/dmitrijs2005/pvault/internal/client/verification"
	"github.com/dmitrijs2005/pvault/internal/common"
	"github.com/dmitrijs2005/pvault/internal/logging"
)

// Sessions is the session store as seen by the CLI: the guard reads it and
// the doctor service writes it.
type Sessions interface {
	guard.SessionReader
	services.SessionStore
}

// RemoteAPI is the union of the doctor and patient halves of the server API.
type RemoteAPI interface {
	services.DoctorAPI
	verification.PatientAPI
}

// History is the local download ledger.
type History interface {
	List(ctx context.Context, limit int) ([]models.DownloadRecord, error)
	Clear(ctx context.Context) error
}

// Deps carries everything NewApp wires together.
type Deps struct {
	Sessions   Sessions
	API        RemoteAPI
	Downloader *download.Downloader
	History    History
	Log        logging.Logger
	In         io.Reader
	Out        io.Writer
}

type App struct {
	sessions   Sessions
	guard      *guard.Guard
	doctors    services.DoctorService
	patients   verification.PatientAPI
	downloader *download.Downloader
	history    History
	log        logging.Logger
	reader     *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	route  string
	listed map[models.ID]string
}

func NewApp(d Deps) *App {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	return &App{
		sessions:   d.Sessions,
		guard:      guard.New(d.Sessions, common.RouteDoctorLogin),
		doctors:    services.NewDoctorService(d.API, d.Sessions, d.Downloader, log),
		patients:   d.API,
		downloader: d.Downloader,
		history:    d.History,
		log:        log.With("component", "cli"),
		reader:     bufio.NewReader(d.In),
		out:        d.Out,
		route:      common.RouteHome,
		listed:     map[models.ID]string{},
	}
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	a.say("Welcome to PVault CLI (type 'help' for commands)")
	if s, ok := a.sessions.Current(); ok {
		a.say("Signed in as %s", s.Doctor.Name)
		a.route = common.RouteDoctorDashboard
	}
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.sessions.IsAuthenticated()
}

// navigate moves to route if the guard allows it. A denied route prints a
// notice and lands on the login route instead.
func (a *App) navigate(route guard.Route) bool {
	d := a.guard.Check(route)
	if !d.Allowed() {
		a.route = d.Redirect
		a.say("Please log in to continue")
		return false
	}
	a.route = route.Path
	return true
}

// recheck re-runs the guard on the current route, which sends the user to
// login after the session ended underneath a command.
func (a *App) recheck() {
	a.navigate(guard.Route{Path: a.route, RequiresDoctor: true})
}

func (a *App) status() string {
	s, ok := a.sessions.Current()
	if !ok {
		return a.route
	}
	return fmt.Sprintf("%s %s", s.Doctor.Name, a.route)
}

// say writes one line to the user. Safe for concurrent use.
func (a *App) say(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) success(msg string) { a.say("[ok] %s", msg) }
func (a *App) failure(msg string) { a.say("[error] %s", msg) }

// printNotifier shows verification notifications on the App output.
type printNotifier struct{ a *App }

func (n printNotifier) Success(msg string) { n.a.success(msg) }
func (n printNotifier) Failure(msg string) { n.a.failure(msg) }

func (a *App) newFlow() *verification.Flow {
	return verification.New(a.patients, a.downloader,
		verification.WithNotifier(printNotifier{a}),
		verification.WithLogger(a.log),
	)
}
