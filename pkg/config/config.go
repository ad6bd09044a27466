package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/render"
	"github.com/rubiojr/tracekit/pkg/tracekit"
	"github.com/rubiojr/tracekit/pkg/transport"
)

//go:embed config.toml.sample
var configTemplate string

// File is the on-disk configuration. Every key is optional; keys left out
// keep the logger's current value, so a file is a partial update.
type File struct {
	General  General  `toml:"general"`
	Terminal Terminal `toml:"terminal"`
	Remote   Remote   `toml:"remote"`
}

type General struct {
	Namespace *string     `toml:"namespace,omitempty"`
	MinLevel  *core.Level `toml:"min_level,omitempty"`
}

type Terminal struct {
	Timestamp   *bool               `toml:"timestamp,omitempty"`
	Colors      *bool               `toml:"colors,omitempty"`
	Boxed       *bool               `toml:"boxed,omitempty"`
	BorderStyle *render.BorderStyle `toml:"border_style,omitempty"`
	Padding     *int                `toml:"padding,omitempty"`
}

type Remote struct {
	Enabled              *bool           `toml:"enabled,omitempty"`
	Transport            *transport.Kind `toml:"transport,omitempty"`
	HTTPURL              *string         `toml:"http_url,omitempty"`
	SocketURL            *string         `toml:"socket_url,omitempty"`
	AuthToken            *string         `toml:"auth_token,omitempty"`
	Timeout              *Duration       `toml:"timeout,omitempty"`
	RetryAttempts        *int            `toml:"retry_attempts,omitempty"`
	ReconnectDelay       *Duration       `toml:"reconnect_delay,omitempty"`
	MaxReconnectAttempts *int            `toml:"max_reconnect_attempts,omitempty"`
	FallbackToHTTP       *bool           `toml:"fallback_to_http,omitempty"`
	Compress             *bool           `toml:"compress,omitempty"`
	MinLevel             *core.Level     `toml:"min_level,omitempty"`
}

// Duration is a time.Duration written as text ("5s", "250ms").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Load reads the file at configPath. A missing file yields an empty File.
func Load(configPath string) (*File, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &f, nil
}

// Save writes f as TOML, creating the parent directory.
func (f *File) Save(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Options converts the keys present in f into logger options.
func (f *File) Options() []tracekit.Option {
	var opts []tracekit.Option
	add := func(o tracekit.Option) { opts = append(opts, o) }

	g := f.General
	if g.Namespace != nil {
		add(tracekit.WithNamespace(*g.Namespace))
	}
	if g.MinLevel != nil {
		add(tracekit.WithMinLevel(*g.MinLevel))
	}

	t := f.Terminal
	if t.Timestamp != nil {
		add(tracekit.WithTimestamp(*t.Timestamp))
	}
	if t.Colors != nil {
		add(tracekit.WithColors(*t.Colors))
	}
	if t.Boxed != nil {
		add(tracekit.WithDefaultBoxed(*t.Boxed))
	}
	if t.BorderStyle != nil {
		add(tracekit.WithDefaultBorderStyle(*t.BorderStyle))
	}
	if t.Padding != nil {
		add(tracekit.WithDefaultPadding(*t.Padding))
	}

	r := f.Remote
	if r.Enabled != nil {
		add(tracekit.WithRemote(*r.Enabled))
	}
	if r.Transport != nil {
		add(tracekit.WithTransportType(*r.Transport))
	}
	if r.HTTPURL != nil {
		add(tracekit.WithHTTPURL(*r.HTTPURL))
	}
	if r.SocketURL != nil {
		add(tracekit.WithSocketURL(*r.SocketURL))
	}
	if r.AuthToken != nil {
		add(tracekit.WithAuthToken(*r.AuthToken))
	}
	if r.Timeout != nil {
		add(tracekit.WithTimeout(r.Timeout.Duration))
	}
	if r.RetryAttempts != nil {
		add(tracekit.WithRetryAttempts(*r.RetryAttempts))
	}
	if r.ReconnectDelay != nil {
		add(tracekit.WithReconnectDelay(r.ReconnectDelay.Duration))
	}
	if r.MaxReconnectAttempts != nil {
		add(tracekit.WithMaxReconnectAttempts(*r.MaxReconnectAttempts))
	}
	if r.FallbackToHTTP != nil {
		add(tracekit.WithFallbackToHTTP(*r.FallbackToHTTP))
	}
	if r.Compress != nil {
		add(tracekit.WithCompression(*r.Compress))
	}
	if r.MinLevel != nil {
		add(tracekit.WithRemoteMinLevel(*r.MinLevel))
	}
	return opts
}

// TerminalOptions is Options restricted to the local rendering keys. The
// collector uses it on reload so a file edit cannot turn on forwarding.
func (f *File) TerminalOptions() []tracekit.Option {
	local := File{General: f.General, Terminal: f.Terminal}
	return local.Options()
}

// SaveTemplate writes the commented sample configuration to configPath.
func SaveTemplate(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetConfigDir returns the tracekit configuration directory, creating it if
// needed.
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "tracekit")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
