package main

import (
	"testing"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	args := []string{
		"--input", "topic.json",
		"--base-url", "https://forum.example",
		"--css", "a.css",
		"--css", "b.css",
		"--mode", "single",
		"--out", "topic.html",
		"--avatar-size", "90",
		"-v",
	}

	f, fs, err := parseFlags(args)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if f.input != "topic.json" || f.baseURL != "https://forum.example" {
		t.Errorf("input/baseURL = %q/%q", f.input, f.baseURL)
	}
	if len(f.css) != 2 || f.css[0] != "a.css" || f.css[1] != "b.css" {
		t.Errorf("css = %v, want [a.css b.css]", f.css)
	}
	if f.mode != "single" || f.out != "topic.html" || f.avatarSize != 90 {
		t.Errorf("mode/out/avatarSize = %q/%q/%d", f.mode, f.out, f.avatarSize)
	}
	if !f.verbose {
		t.Error("verbose not set by -v")
	}
	if !fs.Changed("avatar-size") {
		t.Error("avatar-size not marked as changed")
	}
	if fs.Changed("max-concurrency") {
		t.Error("max-concurrency marked as changed without being set")
	}
}

func TestParseFlagsRejectsVerboseQuiet(t *testing.T) {
	t.Parallel()

	_, _, err := parseFlags([]string{"--verbose", "--quiet"})
	if err == nil {
		t.Fatal("parseFlags() accepted --verbose with --quiet")
	}
}

func TestValidateRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		f    cliFlags
		ok   bool
	}{
		{name: "all set", f: cliFlags{input: "t.json", baseURL: "https://x"}, ok: true},
		{name: "missing input", f: cliFlags{baseURL: "https://x"}, ok: false},
		{name: "missing base url", f: cliFlags{input: "t.json"}, ok: false},
		{name: "version short-circuits", f: cliFlags{version: true}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.f.validateRequired()
			if tt.ok && err != nil {
				t.Errorf("validateRequired() error = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("validateRequired() = nil, want error")
			}
		})
	}
}
