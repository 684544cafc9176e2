package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/BioHazard786/rendezvous/internal/logging"
)

const (
	envPort            = "PORT"
	envAllowedOrigins  = "ALLOWED_ORIGINS"
	envPingInterval    = "PING_INTERVAL"
	envPingTimeout     = "PING_TIMEOUT"
	envMaxPayloadBytes = "MAX_PAYLOAD_BYTES"
	envSendQueueSize   = "SEND_QUEUE_SIZE"
	envShutdownTimeout = "SHUTDOWN_TIMEOUT"
	envAppEnv          = "APP_ENV"
	envLogFormat       = "LOG_FORMAT"
	envLogLevel        = "LOG_LEVEL"
	envConfigFile      = "CONFIG_FILE"

	DefaultPort            = 8080
	DefaultPingInterval    = 25 * time.Second
	DefaultPingTimeout     = 60 * time.Second
	DefaultMaxPayloadBytes = int64(64 * 1024)
	DefaultSendQueueSize   = 256
	DefaultShutdownTimeout = 10 * time.Second
	DefaultEnv             = EnvDev
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config is the server configuration.
type Config struct {
	Port int

	// AllowedOrigins is shared by CORS and the WebSocket origin check. A
	// single "*" allows every origin.
	AllowedOrigins []string

	PingInterval    time.Duration
	PingTimeout     time.Duration
	MaxPayloadBytes int64
	SendQueueSize   int
	ShutdownTimeout time.Duration

	Env       string
	LogFormat logging.Format
	LogLevel  slog.Level

	// ConfigFile is the TOML file the values were read from, if any.
	ConfigFile string
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// setting binds one configuration key to its env var, flag, and TOML key.
type setting struct {
	env   string
	flag  string
	usage string
	apply func(c *Config, v string) error
}

var settings = []setting{
	{envPort, "port", "HTTP listen port", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n <= 0 || n > 65535 {
			return errors.New("out of range")
		}
		c.Port = n
		return nil
	}},
	{envAllowedOrigins, "allowed-origins", "comma-separated allowed origins (* for any)", func(c *Config, v string) error {
		c.AllowedOrigins = splitList(v)
		return nil
	}},
	{envPingInterval, "ping-interval", "interval between WebSocket pings", durationSetter(func(c *Config) *time.Duration { return &c.PingInterval })},
	{envPingTimeout, "ping-timeout", "drop a connection silent for this long", durationSetter(func(c *Config) *time.Duration { return &c.PingTimeout })},
	{envMaxPayloadBytes, "max-payload-bytes", "largest inbound frame in bytes", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.New("must be positive")
		}
		c.MaxPayloadBytes = n
		return nil
	}},
	{envSendQueueSize, "send-queue-size", "outbound messages buffered per connection", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.New("must be positive")
		}
		c.SendQueueSize = n
		return nil
	}},
	{envShutdownTimeout, "shutdown-timeout", "grace period for in-flight requests on shutdown", durationSetter(func(c *Config) *time.Duration { return &c.ShutdownTimeout })},
	{envAppEnv, "env", "deployment environment (dev or prod)", func(c *Config, v string) error {
		switch strings.ToLower(v) {
		case "dev", "development":
			c.Env = EnvDev
		case "prod", "production":
			c.Env = EnvProd
		default:
			return errors.New("want dev or prod")
		}
		return nil
	}},
	{envLogFormat, "log-format", "log format (text or json)", func(c *Config, v string) error {
		f, err := logging.ParseFormat(v)
		if err != nil {
			return err
		}
		c.LogFormat = f
		return nil
	}},
	{envLogLevel, "log-level", "log level (debug, info, warn, error)", func(c *Config, v string) error {
		l, err := logging.ParseLevel(v)
		if err != nil {
			return err
		}
		c.LogLevel = l
		return nil
	}},
}

func durationSetter(field func(c *Config) *time.Duration) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		if d <= 0 {
			return errors.New("must be positive")
		}
		*field(c) = d
		return nil
	}
}

// Load reads the server configuration. Precedence, highest first: command
// line flags, environment (including a .env file in the working directory),
// the TOML file named by -config or CONFIG_FILE, built-in defaults.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()
	return load(os.LookupEnv, args, os.Stderr)
}

func load(lookup func(string) (string, bool), args []string, usage io.Writer) (Config, error) {
	fs := flag.NewFlagSet("rendezvous-server", flag.ContinueOnError)
	fs.SetOutput(usage)
	configPath := fs.String("config", "", "path to a TOML config file (env "+envConfigFile+")")
	flagValues := make(map[string]*string, len(settings))
	for _, s := range settings {
		flagValues[s.flag] = fs.String(s.flag, "", s.usage+" (env "+s.env+")")
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := Config{
		Port:            DefaultPort,
		PingInterval:    DefaultPingInterval,
		PingTimeout:     DefaultPingTimeout,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
		SendQueueSize:   DefaultSendQueueSize,
		ShutdownTimeout: DefaultShutdownTimeout,
		Env:             DefaultEnv,
	}

	// The level default depends on Env, so remember whether a source set it.
	levelSet := false
	apply := func(s setting, v string) error {
		if s.env == envLogLevel {
			levelSet = true
		}
		return s.apply(&cfg, v)
	}

	path := *configPath
	if path == "" {
		path, _ = lookup(envConfigFile)
	}
	if path != "" {
		values, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for _, s := range settings {
			if v, ok := values[strings.ToLower(s.env)]; ok {
				if err := apply(s, v); err != nil {
					return Config{}, fmt.Errorf("invalid %s %q in %s: %w", strings.ToLower(s.env), v, path, err)
				}
			}
		}
		cfg.ConfigFile = path
	}

	for _, s := range settings {
		v, ok := lookup(s.env)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := apply(s, strings.TrimSpace(v)); err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", s.env, v, err)
		}
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		if flagErr != nil {
			return
		}
		for _, s := range settings {
			if s.flag != f.Name {
				continue
			}
			if err := apply(s, *flagValues[s.flag]); err != nil {
				flagErr = fmt.Errorf("invalid -%s %q: %w", s.flag, *flagValues[s.flag], err)
			}
		}
	})
	if flagErr != nil {
		return Config{}, flagErr
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = logging.FormatText
		if cfg.Env == EnvProd {
			cfg.LogFormat = logging.FormatJSON
		}
	}
	if !levelSet {
		cfg.LogLevel = slog.LevelDebug
		if cfg.Env == EnvProd {
			cfg.LogLevel = slog.LevelInfo
		}
	}

	if cfg.PingInterval >= cfg.PingTimeout {
		return Config{}, fmt.Errorf("invalid %s %s: must be less than %s (%s)", envPingInterval, cfg.PingInterval, envPingTimeout, cfg.PingTimeout)
	}
	return cfg, nil
}

// readFile decodes a flat TOML file into string values keyed by lower-case
// setting name. Arrays are joined with commas.
func readFile(path string) (map[string]string, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[k] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("read config file: %s: tables are not supported", k)
		default:
			values[k] = fmt.Sprint(v)
		}
	}
	return values, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
