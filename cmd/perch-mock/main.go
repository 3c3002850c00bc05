// Command perch-mock serves an in-memory dashboard API for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/perch/internal/api/apitest"
	"github.com/mmcdole/perch/internal/domain"
	"github.com/mmcdole/perch/internal/log"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

type Args struct {
	Addr     string
	Token    string
	Seed     bool
	LogLevel string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()
	logger := log.New(os.Stderr, args.LogLevel)

	fake := apitest.NewServer(args.Token)
	if args.Seed {
		fake.Seed(sampleEntries()...)
	}

	srv := &http.Server{
		Addr:         args.Addr,
		Handler:      logRequests(fake, logger),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting mock server", "addr", args.Addr, "seeded", args.Seed, "auth", args.Token != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down mock server", "requests", fake.Requests())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func logRequests(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func sampleEntries() []domain.Entry {
	return []domain.Entry{
		{ID: uuid.NewString(), Kind: domain.KindNote, Title: "Welcome to perch", Body: "Press n to add a note, t for a todo.", Pinned: true},
		{ID: uuid.NewString(), Kind: domain.KindTodo, Title: "Water the plants", Tags: []string{"home"}},
		{ID: uuid.NewString(), Kind: domain.KindTodo, Title: "Renew passport", Tags: []string{"admin"}, Done: true},
		{ID: uuid.NewString(), Kind: domain.KindLink, Title: "Go release notes", URL: "https://go.dev/doc/devel/release", Tags: []string{"reading"}},
	}
}

func parseArgs() Args {
	addr := flag.String("addr", ":8787", "listen address")
	token := flag.String("token", "dev-token", "bearer token clients must send (empty disables auth)")
	seed := flag.Bool("seed", false, "start with sample entries")
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nperch-mock - in-memory dashboard API for development\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -addr :8787 -token secret -seed\n", os.Args[0])
	}

	flag.Parse()

	return Args{
		Addr:     *addr,
		Token:    *token,
		Seed:     *seed,
		LogLevel: *level,
	}
}
