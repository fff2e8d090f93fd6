package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	topic2html "github.com/alnah/go-topic2html"
	"github.com/alnah/go-topic2html/internal/fileutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes follow Unix conventions: 0=success, 1=general, 2=usage, 3=I/O.
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitUsage   = 2
	ExitIO      = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, fs, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}

	if flags.version {
		fmt.Printf("topic2html %s\n", Version)
		return ExitSuccess
	}

	logger := newLogger(flags)
	slog.SetDefault(logger)

	// Error ignored: maxprocs.Set only fails on an invalid GOMAXPROCS env,
	// in which case Go runtime defaults apply and the program continues.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, a ...interface{}) {
		logger.Debug(fmt.Sprintf(format, a...))
	}))

	if err := flags.validateRequired(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}

	cfg := DefaultConfig()
	if flags.config != "" {
		cfg, err = LoadConfig(flags.config)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitUsage
		}
	}
	cfg.merge(flags, fs)

	mode, err := topic2html.ParseOutputMode(cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %q\n", err, cfg.Mode)
		return ExitUsage
	}

	baseURL, err := url.Parse(flags.baseURL)
	if err != nil || baseURL.Host == "" {
		fmt.Fprintf(os.Stderr, "invalid --base-url %q\n", flags.baseURL)
		return ExitUsage
	}

	for _, p := range flags.css {
		if fileutil.IsURL(p) {
			fmt.Fprintf(os.Stderr, "--css expects a local file, got URL %q (remote stylesheets are auto-discovered from --base-url)\n", p)
			return ExitUsage
		}
		if !fileutil.FileExists(p) {
			fmt.Fprintf(os.Stderr, "css file not found: %s\n", p)
			return ExitIO
		}
	}

	data, err := os.ReadFile(flags.input) // #nosec G304 -- path comes from the user's own --input flag
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", flags.input, err)
		return ExitIO
	}
	topic, err := topic2html.ParseTopic(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := topic2html.New(
		topic2html.WithUserAgent(cfg.UserAgent),
		topic2html.WithMaxConcurrency(cfg.MaxConcurrency),
		topic2html.WithLogger(logger),
	)

	err = svc.Render(ctx, topic2html.Input{
		Topic:         topic,
		BaseURL:       baseURL,
		CSSPaths:      flags.css,
		BuiltinTheme:  flags.builtinCSS,
		Mode:          mode,
		OutPath:       flags.out,
		AvatarSize:    cfg.AvatarSize,
		AssetsDirName: cfg.AssetsDirName,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitGeneral
	}

	return ExitSuccess
}

// newLogger builds the CLI logger: debug with --verbose, errors only with
// --quiet, info otherwise. Output goes to stderr so artifacts and progress
// never mix.
func newLogger(flags *cliFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case flags.verbose:
		level = slog.LevelDebug
	case flags.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
