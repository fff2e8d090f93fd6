// Package assets ships the built-in theme content: the minimal light/dark
// stylesheet and the client-side theme toggle script, embedded at compile
// time.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for asset operations.
var (
	ErrStyleNotFound  = errors.New("style not found")
	ErrScriptNotFound = errors.New("script not found")
	ErrInvalidName    = errors.New("invalid asset name")
)

//go:embed styles/*
var styles embed.FS

//go:embed scripts/*
var scripts embed.FS

// LoadStyle loads an embedded CSS style by name (without .css extension).
func LoadStyle(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	content, err := styles.ReadFile("styles/" + name + ".css")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}
	return string(content), nil
}

// LoadScript loads an embedded JS snippet by name (without .js extension).
func LoadScript(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	content, err := scripts.ReadFile("scripts/" + name + ".js")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrScriptNotFound, name)
	}
	return string(content), nil
}

// validateName rejects names that could escape the embedded tree.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
