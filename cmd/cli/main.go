package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/pvault/internal/buildinfo"
	"github.com/dmitrijs2005/pvault/internal/client/api"
	"github.com/dmitrijs2005/pvault/internal/client/cli"
	"github.com/dmitrijs2005/pvault/internal/client/config"
	"github.com/dmitrijs2005/pvault/internal/client/download"
	"github.com/dmitrijs2005/pvault/internal/client/repositories/downloads"
	"github.com/dmitrijs2005/pvault/internal/client/session"
	"github.com/dmitrijs2005/pvault/internal/client/store"
	"github.com/dmitrijs2005/pvault/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	initSignalHandler(cancel)

	// a broken local database leaves the session memory-only
	var (
		sessions *session.Store
		history  cli.History
		dlOpts   = []download.Option{download.WithTracker(download.NewTracker()), download.WithLogger(logger)}
	)
	db, err := store.Open(ctx, cfg.DataDir)
	if err != nil {
		logger.Warn(ctx, "local storage unavailable, session will not survive a restart", "error", err)
		sessions = session.New(nil, logger)
	} else {
		defer db.Close()
		sessions = session.New(db, logger)
		ledger := downloads.NewSQLiteRepository(db)
		history = ledger
		dlOpts = append(dlOpts, download.WithRecorder(ledger))
	}
	sessions.Restore(ctx)

	client, err := api.New(cfg.APIBaseURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		api.WithTokenSource(sessions.Token),
		api.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}

	sink, err := download.NewSink(ctx, cfg.DownloadDest, cfg.S3())
	if err != nil {
		return fmt.Errorf("download destination: %w", err)
	}
	dl := download.New(client, sink, dlOpts...)

	app := cli.NewApp(cli.Deps{
		Sessions:   sessions,
		API:        client,
		Downloader: dl,
		History:    history,
		Log:        logger,
		In:         os.Stdin,
		Out:        os.Stdout,
	})
	app.Run(ctx)
	return nil
}

// initSignalHandler cancels in-flight calls and leaves on SIGINT/SIGTERM.
// The REPL blocks on stdin, so the process exits here rather than waiting
// for the loop to notice.
func initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
		fmt.Println("Bye!")
		os.Exit(0)
	}()
}
