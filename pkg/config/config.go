package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the optional config file read from the working directory
const DefaultFile = "gyp.toml"

// EnvPrefix prefixes environment overrides, e.g. GYP_FORMAT=summary
const EnvPrefix = "GYP_"

// Config holds all configuration for the application
type Config struct {
	Format    string   `koanf:"format"`
	Variables []string `koanf:"variable"`
	Output    string   `koanf:"output"`
	Extension string   `koanf:"extension"`
	LogLevel  string   `koanf:"log-level"`
	LogJSON   bool     `koanf:"log-json"`
	Watch     bool     `koanf:"watch"`
	Serve     bool     `koanf:"serve"`
	Port      int      `koanf:"port"`
}

// option is one setting reachable from every layer. The key doubles as the
// flag name and, upper-cased with underscores, as the environment name.
type option struct {
	key   string
	short string
	def   any
	usage string
}

var options = []option{
	{"format", "f", "summary", "output format"},
	{"variable", "D", []string{}, "extra condition token to activate (repeatable)"},
	{"output", "o", "", "write output to file instead of stdout"},
	{"extension", "", ".gyp", "unit file extension used when no units are given"},
	{"log-level", "", "info", "log level: trace, debug, info, warn, error"},
	{"log-json", "", false, "log as JSON"},
	{"watch", "w", false, "re-resolve when any unit or include changes"},
	{"serve", "", false, "serve the resolution over HTTP"},
	{"port", "p", 8080, "port for --serve"},
}

// RegisterFlags defines the command line flags Load understands
func RegisterFlags(f *pflag.FlagSet) {
	for _, o := range options {
		switch def := o.def.(type) {
		case string:
			f.StringP(o.key, o.short, def, o.usage)
		case bool:
			f.BoolP(o.key, o.short, def, o.usage)
		case int:
			f.IntP(o.key, o.short, def, o.usage)
		case []string:
			f.StringSliceP(o.key, o.short, nil, o.usage)
		}
	}
}

// Load reads DefaultFile from the working directory. Later layers win:
// defaults, then the file, then GYP_* variables, then flags.
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(DefaultFile, f)
}

// LoadFile is Load with an explicit config file path. A missing file is not
// an error; a malformed one is.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaults{}, nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	// GYP_VARIABLE=OS==mac,USE_X sets two variables
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d out of range", cfg.Port)
	}
	return &cfg, nil
}

func envKey(key, value string) (string, any) {
	key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", "-")
	if key == "variable" {
		return key, strings.Split(value, ",")
	}
	return key, value
}

// defaults is a koanf.Provider over the option table
type defaults struct{}

func (defaults) Read() (map[string]any, error) {
	m := make(map[string]any, len(options))
	for _, o := range options {
		m[o.key] = o.def
	}
	return m, nil
}

func (defaults) ReadBytes() ([]byte, error) {
	return nil, errors.New("defaults provider does not support ReadBytes")
}
