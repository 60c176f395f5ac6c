package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "STEPWISE_"

// Settings is the complete debugger configuration.
type Settings struct {
	Debugger DebuggerSettings `toml:"debugger"`
	Store    StoreSettings    `toml:"store"`
	Watch    WatchSettings    `toml:"watch"`
	Logging  LoggingSettings  `toml:"logging"`
	UI       UISettings       `toml:"ui"`
}

// DebuggerSettings configures the debug session.
type DebuggerSettings struct {
	// SearchPaths are directories consulted when resolving a source file name.
	SearchPaths []string `toml:"search_paths"`

	// SourceIDThreshold is the first id available for locally synthesized
	// line sources when no runtime supplies one.
	SourceIDThreshold int `toml:"source_id_threshold"`

	// AutoOpenCurrent opens a source window for the current line on
	// debugger re-entry.
	AutoOpenCurrent bool `toml:"auto_open_current"`
}

// StoreSettings selects the persisted configuration store.
type StoreSettings struct {
	Kind string `toml:"kind"`
	Path string `toml:"path"`
}

// WatchSettings configures reload-on-change of program files.
type WatchSettings struct {
	Enabled  bool   `toml:"enabled"`
	Debounce string `toml:"debounce"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// UISettings configures the terminal front end.
type UISettings struct {
	TabWidth int `toml:"tab_width"`

	// Keys rebinds actions: action name to key name ("b", "F9", "Enter").
	// Unlisted actions keep their default keys.
	Keys map[string]string `toml:"keys"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Debugger: DebuggerSettings{
			SearchPaths:     []string{"."},
			AutoOpenCurrent: true,
		},
		Store: StoreSettings{
			Kind: "toml",
			Path: ".stepwise/session.toml",
		},
		Watch: WatchSettings{
			Enabled:  true,
			Debounce: "200ms",
		},
		Logging: LoggingSettings{
			Level: "info",
		},
		UI: UISettings{
			TabWidth: 4,
		},
	}
}

// DebounceDuration parses Watch.Debounce, falling back to 200ms.
func (s Settings) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(s.Watch.Debounce)
	if err != nil || d < 0 {
		return 200 * time.Millisecond
	}
	return d
}

// Load reads settings from path on top of Defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Parse(data, &s); err != nil {
				return s, &ParseError{Path: path, Message: err.Error(), Err: err}
			}
		case os.IsNotExist(err):
		default:
			return s, fmt.Errorf("reading settings %s: %w", path, err)
		}
	}

	if err := ApplyEnv(&s, os.LookupEnv); err != nil {
		return s, err
	}
	return s, nil
}

// Parse decodes TOML settings into s. Keys absent from data keep their
// current values.
func Parse(data []byte, s *Settings) error {
	return toml.Unmarshal(data, s)
}

// Encode renders settings as TOML.
func Encode(s Settings) ([]byte, error) {
	return toml.Marshal(s)
}

// ApplyEnv overrides settings from STEPWISE_* variables using lookup.
func ApplyEnv(s *Settings, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("LOG_LEVEL", &s.Logging.Level)
	str("LOG_FILE", &s.Logging.File)
	str("STORE_KIND", &s.Store.Kind)
	str("STORE_PATH", &s.Store.Path)
	str("WATCH_DEBOUNCE", &s.Watch.Debounce)

	if err := boolean("WATCH_ENABLED", &s.Watch.Enabled); err != nil {
		return err
	}
	if err := boolean("AUTO_OPEN_CURRENT", &s.Debugger.AutoOpenCurrent); err != nil {
		return err
	}

	if v, ok := lookup(EnvPrefix + "SEARCH_PATHS"); ok {
		s.Debugger.SearchPaths = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "TAB_WIDTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%sTAB_WIDTH=%q: %w", EnvPrefix, v, ErrInvalidSetting)
		}
		s.UI.TabWidth = n
	}
	if v, ok := lookup(EnvPrefix + "SOURCE_ID_THRESHOLD"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%sSOURCE_ID_THRESHOLD=%q: %w", EnvPrefix, v, ErrInvalidSetting)
		}
		s.Debugger.SourceIDThreshold = n
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("%q: %w", s, ErrInvalidSetting)
}

func splitList(s string) []string {
	parts := strings.Split(s, string(os.PathListSeparator))
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
