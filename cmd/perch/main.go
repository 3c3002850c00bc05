package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/mmcdole/perch/internal/activity"
	"github.com/mmcdole/perch/internal/api"
	"github.com/mmcdole/perch/internal/board"
	"github.com/mmcdole/perch/internal/config"
	"github.com/mmcdole/perch/internal/domain"
	"github.com/mmcdole/perch/internal/log"
	"github.com/mmcdole/perch/internal/opener"
	"github.com/mmcdole/perch/internal/prefs"
	"github.com/mmcdole/perch/internal/schedule"
	"github.com/mmcdole/perch/internal/store"
	"github.com/mmcdole/perch/internal/tui"
	"github.com/mmcdole/perch/internal/tui/styles"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

const (
	activityBuffer  = 16
	shutdownTimeout = 2 * time.Second
)

func main() {
	var (
		showVersion bool
		configPath  string
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configPath, "config", "", "path to config file (default ~/.config/perch/config.yaml)")
	flag.Parse()

	if showVersion {
		fmt.Printf("perch %s\n", Version)
		return
	}

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, logCloser, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	} else {
		defer logCloser.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting perch", "version", Version)
	styles.Theme(cfg.UI.Theme)

	// Check if configured
	if !cfg.IsConfigured() {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("%w: set PERCH_SERVER_URL and PERCH_SERVER_TOKEN", domain.ErrNotConfigured)
		}
		if err := runSetupFlow(cfg, configPath, logger); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Activity tracking
	tracker := activity.New(logger)
	defer tracker.Stop()

	registry := prometheus.NewRegistry()
	metrics, err := activity.NewMetrics(registry, tracker.Status())
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	defer tracker.Subscribe(metrics)()

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, registry, logger)
		defer stop()
	}

	// Data layer
	client, err := api.NewClient(cfg.Server.URL, cfg.Server.Token, tracker, logger)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	st, err := store.NewStore(cfg.Cache.Dir, cfg.Server.URL)
	if err != nil {
		logger.Warn("failed to open cache, using memory only", "error", err)
		st, _ = store.NewStore("", cfg.Server.URL)
	}
	defer st.Close()

	svc := board.NewService(client, st, logger, board.WithTimeout(cfg.Sync.Timeout))

	// Background sync
	trigger, err := schedule.NewTrigger(cfg.Sync.Schedule, svc, logger)
	if err != nil {
		return fmt.Errorf("sync.schedule: %w", err)
	}
	logger.Info("starting background sync", "schedule", trigger.Spec(), "next_run", trigger.NextRun())
	trigger.Start(ctx)

	// TUI
	changes := make(chan activity.Change, activityBuffer)
	defer tracker.Subscribe(activity.NewChannelObserver(changes))()

	prefsPath := prefs.DefaultPath()
	model := tui.NewModel(svc, tui.Options{
		Title:    boardTitle(client.BaseURL()),
		Activity: changes,
		Status:   tracker.Status(),
		Prefs:    prefs.Load(prefsPath),
		Opener:   opener.New(cfg.UI.Opener, cfg.UI.OpenerArgs, logger),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	final, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := final.(tui.Model); ok {
		if err := prefs.Save(prefsPath, m.Prefs()); err != nil {
			logger.Warn("failed to save prefs", "error", err)
		}
	}

	logger.Info("shutting down", "pending", svc.Pending())
	return nil
}

func boardTitle(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "perch"
	}
	return "perch · " + u.Host
}

// serveMetrics exposes the registry on addr until the returned func is called
func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// runSetupFlow prompts for the server URL and token, checks them and saves
// the config
func runSetupFlow(cfg *config.Config, configPath string, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to perch!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("Enter your dashboard URL (e.g., http://localhost:8787): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		serverURL := strings.TrimSpace(input)
		if serverURL == "" {
			fmt.Println("URL cannot be empty. Please try again.")
			continue
		}

		fmt.Print("Enter your API token: ")
		tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token := strings.TrimSpace(string(tokenBytes))
		if token == "" {
			fmt.Println("Token cannot be empty. Please try again.")
			continue
		}

		fmt.Println()
		if err := checkServerWithSpinner(serverURL, token, logger); err != nil {
			fmt.Printf("✗ Could not connect: %v\n", err)
			fmt.Println("Please check the URL and token and try again.")
			fmt.Println()
			continue
		}

		cfg.Server.URL = strings.TrimRight(serverURL, "/")
		cfg.Server.Token = token
		break
	}

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	return nil
}

// checkServerWithSpinner calls the health endpoint with a visual spinner
func checkServerWithSpinner(serverURL, token string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := api.NewClient(serverURL, token, nil, logger)
	if err != nil {
		return err
	}

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- client.Health(ctx)
	}()

	frame := 0
	fmt.Printf("\r%s Connecting...", tui.RenderSpinner(frame))

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Connected to %s\n", client.BaseURL())
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Connecting...", tui.RenderSpinner(frame))

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("connection timed out")
		}
	}
}
