package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MATHSHEETS"

// DefaultConfigName is the config file looked up in the working directory
// when none is given explicitly.
const DefaultConfigName = "mathsheets"

// Keys understood by Load.
const (
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyGeneratorsDir = "generators_dir"
	KeyOutputDir     = "output_dir"
	KeyProblems      = "problems"
	KeyTimeout       = "timeout"
	KeyWorkers       = "workers"
	KeyAnswerKey     = "answer_key"
	KeySkipExisting  = "skip_existing"
	KeyHistoryDB     = "history_db"
	KeyNATSURL       = "nats_url"
	KeyListenAddr    = "listen_addr"
	KeyGroups        = "groups"
)

// Log output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Group is one configured target, typically a grade level.
type Group struct {
	Key        string `mapstructure:"key"`
	Title      string `mapstructure:"title"`
	Path       string `mapstructure:"path"`
	Difficulty string `mapstructure:"difficulty"`
}

// Config holds application configuration.
type Config struct {
	LogLevel      slog.Level
	LogFormat     string
	GeneratorsDir string
	OutputDir     string
	Problems      int
	Timeout       time.Duration
	Workers       int
	AnswerKey     bool
	SkipExisting  bool
	HistoryDB     string
	NATSURL       string
	ListenAddr    string
	Groups        []Group
}

// DefaultGroups are the targets used when the config names none.
func DefaultGroups() []Group {
	return []Group{
		{Key: "kindergarten", Title: "Kindergarten", Path: "kindergarten"},
		{Key: "grade1", Title: "Grade 1", Path: "grade1"},
		{Key: "grade2", Title: "Grade 2", Path: "grade2"},
	}
}

// New returns a viper instance with defaults, environment binding and the
// config file applied. An explicit configFile must exist; otherwise
// mathsheets.yaml in the working directory is read when present.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, FormatJSON)
	v.SetDefault(KeyGeneratorsDir, "generators")
	v.SetDefault(KeyOutputDir, "worksheets")
	v.SetDefault(KeyProblems, 8)
	v.SetDefault(KeyTimeout, 6*time.Second)
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyAnswerKey, true)
	v.SetDefault(KeySkipExisting, false)
	v.SetDefault(KeyHistoryDB, "")
	v.SetDefault(KeyNATSURL, "")
	v.SetDefault(KeyListenAddr, ":8080")
}

// LoadDotEnv loads environment variables from path without overriding
// variables that are already set. A missing default ".env" is not an error.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		LogLevel:      parseLogLevel(v.GetString(KeyLogLevel)),
		LogFormat:     strings.ToLower(v.GetString(KeyLogFormat)),
		GeneratorsDir: v.GetString(KeyGeneratorsDir),
		OutputDir:     v.GetString(KeyOutputDir),
		Problems:      v.GetInt(KeyProblems),
		Timeout:       v.GetDuration(KeyTimeout),
		Workers:       v.GetInt(KeyWorkers),
		AnswerKey:     v.GetBool(KeyAnswerKey),
		SkipExisting:  v.GetBool(KeySkipExisting),
		HistoryDB:     v.GetString(KeyHistoryDB),
		NATSURL:       v.GetString(KeyNATSURL),
		ListenAddr:    v.GetString(KeyListenAddr),
	}

	if v.IsSet(KeyGroups) {
		if err := v.UnmarshalKey(KeyGroups, &cfg.Groups); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", KeyGroups, err)
		}
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = DefaultGroups()
	}
	for i := range cfg.Groups {
		g := &cfg.Groups[i]
		if g.Path == "" {
			g.Path = g.Key
		}
		if g.Title == "" {
			g.Title = g.Key
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.LogFormat != FormatJSON && c.LogFormat != FormatText:
		return fmt.Errorf("%s must be %q or %q, got %q", KeyLogFormat, FormatJSON, FormatText, c.LogFormat)
	case c.Problems < 1:
		return fmt.Errorf("%s must be positive, got %d", KeyProblems, c.Problems)
	case c.Timeout <= 0:
		return fmt.Errorf("%s must be positive, got %s", KeyTimeout, c.Timeout)
	case c.Workers < 1:
		return fmt.Errorf("%s must be at least 1, got %d", KeyWorkers, c.Workers)
	}

	seen := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if g.Key == "" {
			return fmt.Errorf("%s: group without key", KeyGroups)
		}
		if seen[g.Key] {
			return fmt.Errorf("%s: duplicate group %q", KeyGroups, g.Key)
		}
		seen[g.Key] = true
		if _, err := plugin.ParseDifficulty(g.Difficulty); err != nil {
			return fmt.Errorf("%s: group %q: %w", KeyGroups, g.Key, err)
		}
	}
	return nil
}

// SelectGroups returns the groups named by keys in configured order. No
// keys, or the single key "all", selects every group.
func (c Config) SelectGroups(keys []string) ([]Group, error) {
	if len(keys) == 0 || (len(keys) == 1 && keys[0] == "all") {
		return c.Groups, nil
	}
	for _, k := range keys {
		if !slices.ContainsFunc(c.Groups, func(g Group) bool { return g.Key == k }) {
			return nil, fmt.Errorf("unknown group %q (known: %s)", k, strings.Join(c.GroupKeys(), ", "))
		}
	}
	var out []Group
	for _, g := range c.Groups {
		if slices.Contains(keys, g.Key) {
			out = append(out, g)
		}
	}
	return out, nil
}

// GroupKeys returns the configured group keys in order.
func (c Config) GroupKeys() []string {
	keys := make([]string, len(c.Groups))
	for i, g := range c.Groups {
		keys[i] = g.Key
	}
	return keys
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured logger writing to w at the configured level.
// Format "text" selects the human-readable handler; anything else is JSON.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// LogEnv returns the environment assignments that carry c's logging settings
// to a child process.
func (c Config) LogEnv() []string {
	return []string{
		envVar(KeyLogLevel) + "=" + strings.ToLower(c.LogLevel.String()),
		envVar(KeyLogFormat) + "=" + c.LogFormat,
	}
}

// LoggerFromEnv builds a logger from the logging variables alone, without
// reading or validating any other configuration. Unknown values fall back
// to info and JSON.
func LoggerFromEnv(w io.Writer) *slog.Logger {
	format := strings.ToLower(os.Getenv(envVar(KeyLogFormat)))
	if format != FormatText {
		format = FormatJSON
	}
	return NewLogger(w, parseLogLevel(os.Getenv(envVar(KeyLogLevel))), format)
}

func envVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}
