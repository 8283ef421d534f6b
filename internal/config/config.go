// Package config loads bunnylol's configuration file and exposes an
// immutable snapshot (spec §4.E, §3 "Configuration is immutable per run").
// Loading is done with Viper, following the teacher codebase's choice of
// library for every other settings surface in the GoatKit stack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is an immutable snapshot of the user's configuration. A new
// Config is produced by Load; nothing in this package mutates one in
// place — reload means loading a fresh Config and swapping a pointer.
type Config struct {
	DefaultSearch   string
	ServerPort      int
	PluginDirs      []string
	PluginTimeoutMS int
	Aliases         map[string]string

	// Path is the config file actually read, empty if none was found and
	// defaults were used outright.
	Path string
}

// SearchEngines maps the recognized default_search identifiers (§4.C
// step 7) to the URL template used to build the fallback redirect. "%s"
// is replaced with the url_encode'd query.
var SearchEngines = map[string]string{
	"google": "https://www.google.com/search?q=%s",
	"ddg":    "https://duckduckgo.com/?q=%s",
	"bing":   "https://www.bing.com/search?q=%s",
}

const (
	DefaultSearchEngine   = "google"
	DefaultPort           = 8085
	DefaultPluginTimeout  = 200
	defaultConfigFileName = "config.toml"
)

// DefaultPath returns the conventional configuration file location:
// $XDG_CONFIG_HOME/bunnylol/config.toml, falling back to
// ~/.config/bunnylol/config.toml.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bunnylol", defaultConfigFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "bunnylol", defaultConfigFileName)
	}
	return filepath.Join(home, ".config", "bunnylol", defaultConfigFileName)
}

// UserPluginDir returns the conventional user plugin directory:
// $XDG_DATA_HOME/bunnylol/commands, falling back to
// ~/.local/share/bunnylol/commands.
func UserPluginDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "bunnylol", "commands")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".local", "share", "bunnylol", "commands")
	}
	return filepath.Join(home, ".local", "share", "bunnylol", "commands")
}

// SystemPluginDir returns <install-prefix>/share/bunnylol/commands. The
// install prefix defaults to /usr/local and can be overridden with
// BUNNYLOL_INSTALL_PREFIX (mainly for tests and non-FHS installs).
func SystemPluginDir() string {
	prefix := os.Getenv("BUNNYLOL_INSTALL_PREFIX")
	if prefix == "" {
		prefix = "/usr/local"
	}
	return filepath.Join(prefix, "share", "bunnylol", "commands")
}

// Load reads the configuration file at path (or the conventional default
// path if empty). A missing file is not an error — defaults apply, per
// spec §4.E "if absent, defaults apply." Viper itself silently ignores
// keys that don't map to a known setting, so Load walks v.AllKeys() and
// returns a warning for each unrecognized one; logging them is left to
// the caller.
func Load(path string) (*Config, []string, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("BUNNYLOL")
	v.AutomaticEnv()
	v.SetDefault("default_search", DefaultSearchEngine)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("plugin_dirs", []string{})
	v.SetDefault("plugin_timeout_ms", DefaultPluginTimeout)

	found := false
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		found = true
	}

	cfg := &Config{
		DefaultSearch:   strings.ToLower(v.GetString("default_search")),
		ServerPort:      v.GetInt("server.port"),
		PluginDirs:      v.GetStringSlice("plugin_dirs"),
		PluginTimeoutMS: v.GetInt("plugin_timeout_ms"),
		Aliases:         normalizeAliases(v.GetStringMapString("aliases")),
	}
	if found {
		cfg.Path = path
	}

	if _, ok := SearchEngines[cfg.DefaultSearch]; !ok {
		cfg.DefaultSearch = DefaultSearchEngine
	}

	warnings := unknownKeyWarnings(v)
	return cfg, warnings, nil
}

func normalizeAliases(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

var recognizedKeys = map[string]bool{
	"default_search":    true,
	"server":            true,
	"server.port":       true,
	"plugin_dirs":       true,
	"plugin_timeout_ms": true,
	"aliases":           true,
}

// unknownKeyWarnings returns a human-readable warning for every key in
// the config file whose top-level name config.go doesn't recognize (one
// warning per full key path, e.g. "foo.a" and "foo.b" for a [foo] table)
// (spec §4.E:
// "Unknown keys log a warning and are ignored.").
func unknownKeyWarnings(v *viper.Viper) []string {
	var warnings []string
	for _, key := range v.AllKeys() {
		top := strings.SplitN(key, ".", 2)[0]
		if !recognizedKeys[top] && !recognizedKeys[key] {
			warnings = append(warnings, fmt.Sprintf("unknown configuration key %q ignored", key))
		}
	}
	return warnings
}

// SearchFallbackURL builds the fallback redirect URL for an unresolved
// query (spec §4.C step 7), given the already url_encode'd query string.
func (c *Config) SearchFallbackURL(encodedQuery string) string {
	tmpl, ok := SearchEngines[c.DefaultSearch]
	if !ok {
		tmpl = SearchEngines[DefaultSearchEngine]
	}
	return fmt.Sprintf(tmpl, encodedQuery)
}
