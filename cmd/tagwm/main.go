package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	console "github.com/phsym/console-slog"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/daemon"
	"github.com/1broseidon/tagwm/internal/hotkeys"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/x11"
)

func main() {
	loadEnv()

	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "clients":
		os.Exit(runClients(os.Args[2:]))
	case "tags":
		os.Exit(runTags(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "view", "toggle", "tag", "toggletag", "send", "focus", "close", "layout", "master", "set":
		os.Exit(runAction(os.Args[1], os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tagwm <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the window manager (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload the configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  clients             List managed windows")
	fmt.Fprintln(w, "  tags                List tags")
	fmt.Fprintln(w, "  monitors            List monitors")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  view <tag>          View a tag (or 'previous')")
	fmt.Fprintln(w, "  toggle <tag>        Add or remove a tag from the view")
	fmt.Fprintln(w, "  tag <tag>           Move a window to a tag")
	fmt.Fprintln(w, "  toggletag <tag>     Add or remove a tag from a window")
	fmt.Fprintln(w, "  send <monitor>      Send a window to another monitor")
	fmt.Fprintln(w, "  focus <id|next|prev> Focus a window")
	fmt.Fprintln(w, "  close               Close a window")
	fmt.Fprintln(w, "  layout <name|next|prev> Set the layout of the viewed tags")
	fmt.Fprintln(w, "  master factor|count <delta> Adjust the master area")
	fmt.Fprintln(w, "  set <property> [on|off|toggle] Set a window property")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Live dashboard of tags and windows")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'tagwm <command> --help' for command-specific options.")
}

// loadEnv reads ~/.config/tagwm/env so that a session started from a
// display manager still sees DISPLAY, TAGWM_SOCKET and friends. Variables
// already set win.
func loadEnv() {
	dir, err := os.UserConfigDir()
	if err != nil {
		return
	}
	path := filepath.Join(dir, "tagwm", "env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to read %s: %v\n", path, err)
	}
}

func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: level,
	}))
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	backendName := fs.String("backend", "x11", "Display backend: x11 or headless")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/tagwm/config.yaml)")
	logLevel := fs.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	watch := fs.Bool("watch", false, "Reload the configuration when the file changes")
	moveOutputs := fs.Bool("move-outputs", false, "Let tagwm position RandR outputs instead of following the server layout")
	headlessSize := fs.String("headless-size", "1920x1080", "Output size for the headless backend")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tagwm daemon [options]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	level := new(slog.LevelVar)
	logger := newLogger(level)
	slog.SetDefault(logger)

	// Peek at the config for display settings; the daemon loads it again.
	path := *configPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			logger.Error("failed to resolve config path", "error", err)
			return 1
		}
		path = p
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return 1
	}
	applyDisplayEnv(res.Config)

	var backend platform.Backend
	var keys daemon.Keys
	switch *backendName {
	case "x11":
		b, err := x11.New(x11.Options{
			MoveOutputs: *moveOutputs,
			Logger:      logger.With("component", "x11"),
		})
		if err != nil {
			logger.Error("failed to connect to display", "error", err)
			return 1
		}
		backend = b
		keys = hotkeys.NewHandler(b.XUtil(), b.Root(), logger.With("component", "hotkeys"))
	case "headless":
		w, h, err := parseSize(*headlessSize)
		if err != nil {
			logger.Error("invalid headless size", "error", err)
			return 2
		}
		backend = platform.NewHeadless(platform.NewHeadlessOutput("HEADLESS-1", w, h))
	default:
		fmt.Fprintf(os.Stderr, "unknown backend %q: expected x11 or headless\n", *backendName)
		return 2
	}
	defer backend.Close()

	d, err := daemon.New(daemon.Options{
		ConfigPath: path,
		Backend:    backend,
		Keys:       keys,
		Logger:     logger,
		LevelVar:   level,
		Watch:      *watch,
	})
	if err != nil {
		logger.Error("failed to start daemon", "error", err)
		return 1
	}
	// The flag outranks the configured level until the next reload.
	if *logLevel != "" {
		level.Set(config.ParseLogLevel(*logLevel))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		logger.Error("daemon stopped", "error", err)
		return 1
	}
	return 0
}

// applyDisplayEnv points the X connection at the configured display unless
// the environment already names one.
func applyDisplayEnv(cfg *config.Config) {
	if cfg.Display != "" && os.Getenv("DISPLAY") == "" {
		os.Setenv("DISPLAY", cfg.Display)
	}
	if cfg.XAuthority != "" && os.Getenv("XAUTHORITY") == "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("expected WIDTHxHEIGHT, got %q", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", s)
	}
	return w, h, nil
}
