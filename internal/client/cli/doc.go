// Package cli provides the interactive PVault command-line client.
//
// It wires the doctor session, the access guard, the doctor service and the
// patient verification flow behind a small REPL. Every command maps to a
// route; protected routes are checked against the guard on each navigation,
// so a session that ended (logout or a 401 from the server) sends the user
// back to the login route on the next command.
//
// Commands:
//   - login / register / logout / whoami
//   - list [--doctor <id>] [term], upload, download <id> [<id>...]
//   - patient: a nested prompt driving one verification flow
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
