// Package opener hands link entries to a browser or other external command.
package opener

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupportedURL is returned for anything but absolute http(s) URLs.
var ErrUnsupportedURL = errors.New("only http and https links can be opened")

// Opener opens URLs in the configured command or the system default handler
type Opener struct {
	command string   // configured command, empty for system default
	args    []string // additional arguments placed before the URL
	goos    string
	logger  *slog.Logger

	// start launches a process without waiting for it
	start func(name string, args ...string) error
}

// New creates an Opener. An empty command uses open/xdg-open/start.
func New(command string, args []string, logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{
		command: strings.TrimSpace(command),
		args:    args,
		goos:    runtime.GOOS,
		logger:  logger,
		start:   startCommand,
	}
}

func startCommand(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// Open launches raw in the configured command or system default
func (o *Opener) Open(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}
	link := u.String()

	// Tier 1: User configured a specific command
	if o.command != "" {
		args := append(append([]string{}, o.args...), link)
		o.logger.Info("opening link", "command", o.command, "args", args)
		if err := o.start(o.command, args...); err != nil {
			return fmt.Errorf("launch %s: %w", o.command, err)
		}
		return nil
	}

	// Tier 2: System default (open/xdg-open/start)
	name, args := o.systemDefault(link)
	o.logger.Info("opening link with system default", "os", o.goos, "url", link)
	if err := o.start(name, args...); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	return nil
}

func (o *Opener) systemDefault(link string) (string, []string) {
	switch o.goos {
	case "darwin":
		return "open", []string{link}
	case "windows":
		return "cmd", []string{"/c", "start", "", link}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{link}
	}
}
