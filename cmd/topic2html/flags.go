package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
)

// cliFlags holds all command-line flags.
type cliFlags struct {
	input      string
	baseURL    string
	css        []string
	builtinCSS bool
	mode       string
	out        string

	avatarSize     int
	assetsDir      string
	maxConcurrency int
	userAgent      string

	config  string
	verbose bool
	quiet   bool
	version bool
}

// parseFlags parses args (excluding the program name) and returns the flags
// plus the flag set, needed later to tell explicitly-set flags from
// defaults when merging with the config file.
func parseFlags(args []string) (*cliFlags, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("topic2html", flag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVar(&f.input, "input", "", "topic JSON file (must include all posts with cooked HTML)")
	fs.StringVar(&f.baseURL, "base-url", "", "site base URL used to resolve relative references")
	fs.StringSliceVar(&f.css, "css", nil, "local CSS file exported from the site (repeatable)")
	fs.BoolVar(&f.builtinCSS, "builtin-css", false, "use the built-in light/dark theme and skip site CSS")
	fs.StringVar(&f.mode, "mode", "", "output mode: dir (HTML + assets/) or single (one HTML file)")
	fs.StringVar(&f.out, "out", "", "output directory (dir mode) or HTML file path (single mode)")

	fs.IntVar(&f.avatarSize, "avatar-size", 0, "pixel size substituted for {size} in avatar templates")
	fs.StringVar(&f.assetsDir, "assets-dir", "", "assets directory name for dir mode")
	fs.IntVar(&f.maxConcurrency, "max-concurrency", 0, "maximum concurrent downloads")
	fs.StringVar(&f.userAgent, "user-agent", "", "HTTP User-Agent for downloads")

	fs.StringVar(&f.config, "config", "", "YAML config file with default settings")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "log errors only")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if f.verbose && f.quiet {
		return nil, nil, fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}

	return f, fs, nil
}

// validateRequired checks the flags every run needs. --version short-circuits.
func (f *cliFlags) validateRequired() error {
	if f.version {
		return nil
	}
	if f.input == "" {
		return fmt.Errorf("--input is required")
	}
	if f.baseURL == "" {
		return fmt.Errorf("--base-url is required")
	}
	return nil
}
