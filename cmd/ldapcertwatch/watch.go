package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/function61/gokit/jsonfile"
	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/taskrunner"
	"github.com/function61/ldapcertwatch/pkg/findingreport"
)

const findingsShutdownTimeout = 5 * time.Second

// latest report, shared between the periodic checker and the HTTP endpoint
type latestReport struct {
	report *findingreport.Report
	mu     sync.Mutex
}

func (l *latestReport) Get() *findingreport.Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.report
}

func (l *latestReport) Set(report findingreport.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.report = &report
}

func watch(
	ctx context.Context,
	conf config,
	interval time.Duration,
	addr string,
	logger *log.Logger,
) error {
	collectors, err := awsCollectors(conf, logger)
	if err != nil {
		return err
	}

	latest := &latestReport{}

	srv := &http.Server{
		Addr:    addr,
		Handler: findingsHandler(latest),
	}

	tasks := taskrunner.New(ctx, logger)

	tasks.Start("checker", func(ctx context.Context) error {
		return periodicChecker(ctx, interval, latest, func(ctx context.Context) (findingreport.Report, error) {
			return checkRegions(ctx, collectors, time.Now().UTC(), logex.Prefix("check", logger))
		}, logger)
	})

	tasks.Start("findings endpoint "+addr, func(ctx context.Context) error {
		return serveFindings(ctx, srv, findingsShutdownTimeout)
	})

	return tasks.Wait()
}

// checks right away, then on every tick. failed checks are logged and retried on next tick.
func periodicChecker(
	ctx context.Context,
	interval time.Duration,
	latest *latestReport,
	check func(context.Context) (findingreport.Report, error),
	logger *log.Logger,
) error {
	logl := logex.Levels(logger)

	checkAndStore := func() {
		report, err := check(ctx)
		if err != nil {
			logl.Error.Printf("check: %v", err)
			return
		}

		if report.HasFailures() {
			logl.Info.Println("certificates about to expire")
		}

		latest.Set(report)
	}

	checkAndStore()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			checkAndStore()
		}
	}
}

func findingsHandler(latest *latestReport) http.Handler {
	routes := http.NewServeMux()
	routes.HandleFunc("/findings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		report := latest.Get()
		if report == nil {
			http.Error(w, "first check still in progress", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		if err := jsonfile.Marshal(w, report); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return routes
}

// runs srv until ctx is canceled, then drains in-flight requests for at most drainTimeout
func serveFindings(ctx context.Context, srv *http.Server, drainTimeout time.Duration) error {
	serveResult := make(chan error, 1)
	go func() {
		serveResult <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveResult: // didn't even get to serving, e.g. port taken
		return err
	case <-ctx.Done():
	}

	// ctx is already canceled here, so draining needs a fresh one
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("findings endpoint shutdown: %w", err)
	}

	if err := <-serveResult; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
