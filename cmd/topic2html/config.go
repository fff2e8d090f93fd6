package main

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	topic2html "github.com/alnah/go-topic2html"
	"github.com/alnah/go-topic2html/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
)

// Config holds defaults that flags may override.
type Config struct {
	Mode           string `yaml:"mode"`           // "dir" or "single"
	AvatarSize     int    `yaml:"avatarSize"`     // {size} substitution
	AssetsDirName  string `yaml:"assetsDirName"`  // asset tree name in dir mode
	MaxConcurrency int    `yaml:"maxConcurrency"` // download permit pool size
	UserAgent      string `yaml:"userAgent"`      // HTTP User-Agent
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:           topic2html.ModeDir.String(),
		AvatarSize:     topic2html.DefaultAvatarSize,
		AssetsDirName:  topic2html.DefaultAssetsDirName,
		MaxConcurrency: topic2html.DefaultMaxConcurrency,
		UserAgent:      topic2html.DefaultUserAgent,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's own --config flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	return cfg, nil
}

// merge applies explicitly-set flags over the config. Flags left at their
// zero value keep the config's (or built-in) defaults.
func (c *Config) merge(f *cliFlags, fs *flag.FlagSet) {
	if fs.Changed("mode") {
		c.Mode = f.mode
	}
	if fs.Changed("avatar-size") {
		c.AvatarSize = f.avatarSize
	}
	if fs.Changed("assets-dir") {
		c.AssetsDirName = f.assetsDir
	}
	if fs.Changed("max-concurrency") {
		c.MaxConcurrency = f.maxConcurrency
	}
	if fs.Changed("user-agent") {
		c.UserAgent = f.userAgent
	}
}
