package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // bootstrap windows name exchange time zones

	"gopkg.in/yaml.v3"

	"mdp-book/src/frame"
	"mdp-book/src/storage"
)

// ConfigurationError is raised before any input or output is touched.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

type Config struct {
	Input struct {
		Path                  string `yaml:"path"`
		Framing               string `yaml:"framing"`
		IncludeExchangeHeader bool   `yaml:"include_exchange_header"`
		MaxMessages           uint64 `yaml:"max_messages"`
	} `yaml:"input"`

	Decode struct {
		TemplateFilter []uint16 `yaml:"template_filter"`
		Workers        int      `yaml:"workers"`
		BatchSize      int      `yaml:"batch_size"`
	} `yaml:"decode"`

	Output struct {
		Dir       string `yaml:"dir"`
		Format    string `yaml:"format"`
		ChunkSize int    `yaml:"chunk_size"`
	} `yaml:"output"`

	Book struct {
		Enabled      bool `yaml:"enabled"`
		Depth        int  `yaml:"depth"`
		ImpliedDepth int  `yaml:"implied_depth"`
		Workers      int  `yaml:"workers"`
		Snapshots    bool `yaml:"snapshots"`
	} `yaml:"book"`

	Bootstrap struct {
		Enabled  bool   `yaml:"enabled"`
		Location string `yaml:"location"`
		Start    string `yaml:"start"`
		End      string `yaml:"end"`
	} `yaml:"bootstrap"`

	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
}

// Default returns the configuration used when neither file nor
// environment set a value.
func Default() *Config {
	cfg := &Config{}
	cfg.Input.Framing = string(frame.Direct)
	cfg.Input.IncludeExchangeHeader = true
	cfg.Decode.Workers = 1
	cfg.Decode.BatchSize = 4096
	cfg.Output.Format = string(storage.FormatSQLite)
	cfg.Output.ChunkSize = 100000
	cfg.Book.Enabled = true
	cfg.Book.Depth = 10
	cfg.Book.ImpliedDepth = 2
	cfg.Book.Workers = 1
	cfg.Book.Snapshots = true
	cfg.Bootstrap.Location = "America/Chicago"
	cfg.Bootstrap.Start = "14:00"
	cfg.Bootstrap.End = "15:00"
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	return cfg
}

// Load reads an optional YAML file over the defaults, then applies
// environment overrides, then validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigurationError{Field: "CONFIG_FILE", Message: err.Error()}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigurationError{Field: "CONFIG_FILE", Message: err.Error()}
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return &ConfigurationError{Field: "input.path", Message: "input capture is required"}
	}
	if f := frame.Framing(c.Input.Framing); f != frame.Direct && f != frame.Capture {
		return &ConfigurationError{Field: "input.framing", Message: fmt.Sprintf("must be %q or %q, got %q", frame.Direct, frame.Capture, c.Input.Framing)}
	}
	if c.Output.Dir == "" {
		return &ConfigurationError{Field: "output.dir", Message: "output destination is required"}
	}
	if _, err := storage.ParseFormat(c.Output.Format); err != nil {
		return &ConfigurationError{Field: "output.format", Message: err.Error()}
	}
	if c.Output.ChunkSize <= 0 {
		return &ConfigurationError{Field: "output.chunk_size", Message: "must be positive"}
	}
	if c.Decode.Workers <= 0 {
		return &ConfigurationError{Field: "decode.workers", Message: "must be positive"}
	}
	if c.Decode.BatchSize <= 0 {
		return &ConfigurationError{Field: "decode.batch_size", Message: "must be positive"}
	}
	if c.Book.Depth <= 0 {
		return &ConfigurationError{Field: "book.depth", Message: "must be positive"}
	}
	if c.Book.ImpliedDepth <= 0 || c.Book.ImpliedDepth > c.Book.Depth {
		return &ConfigurationError{Field: "book.implied_depth", Message: "must be between 1 and book.depth"}
	}
	if c.Book.Workers <= 0 {
		return &ConfigurationError{Field: "book.workers", Message: "must be positive"}
	}
	if c.Bootstrap.Enabled {
		if _, err := time.LoadLocation(c.Bootstrap.Location); err != nil {
			return &ConfigurationError{Field: "bootstrap.location", Message: err.Error()}
		}
		start, err := ParseClock(c.Bootstrap.Start)
		if err != nil {
			return &ConfigurationError{Field: "bootstrap.start", Message: err.Error()}
		}
		end, err := ParseClock(c.Bootstrap.End)
		if err != nil {
			return &ConfigurationError{Field: "bootstrap.end", Message: err.Error()}
		}
		if end <= start {
			return &ConfigurationError{Field: "bootstrap.end", Message: "must be after bootstrap.start"}
		}
	}
	return nil
}

// ParseClock parses HH:MM into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("MDP_INPUT"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("MDP_FRAMING"); v != "" {
		cfg.Input.Framing = v
	}
	if v := os.Getenv("MDP_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("MDP_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}

	bools := []struct {
		env string
		dst *bool
	}{
		{"MDP_EXCHANGE_HEADER", &cfg.Input.IncludeExchangeHeader},
		{"MDP_SNAPSHOTS", &cfg.Book.Snapshots},
		{"MDP_BOOK", &cfg.Book.Enabled},
		{"MDP_BOOTSTRAP", &cfg.Bootstrap.Enabled},
		{"SERVER_ENABLED", &cfg.Server.Enabled},
	}
	for _, b := range bools {
		if v := os.Getenv(b.env); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return &ConfigurationError{Field: b.env, Message: err.Error()}
			}
			*b.dst = parsed
		}
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"MDP_CHUNK_SIZE", &cfg.Output.ChunkSize},
		{"MDP_DECODE_WORKERS", &cfg.Decode.Workers},
		{"MDP_BOOK_DEPTH", &cfg.Book.Depth},
		{"MDP_BOOK_WORKERS", &cfg.Book.Workers},
	}
	for _, n := range ints {
		if v := os.Getenv(n.env); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return &ConfigurationError{Field: n.env, Message: err.Error()}
			}
			*n.dst = parsed
		}
	}

	if v := os.Getenv("MDP_MAX_MESSAGES"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &ConfigurationError{Field: "MDP_MAX_MESSAGES", Message: err.Error()}
		}
		cfg.Input.MaxMessages = parsed
	}

	if v := os.Getenv("MDP_TEMPLATES"); v != "" {
		ids, err := parseTemplateList(v)
		if err != nil {
			return &ConfigurationError{Field: "MDP_TEMPLATES", Message: err.Error()}
		}
		cfg.Decode.TemplateFilter = ids
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			cfg.Server.ShutdownTimeout = parsed
		}
	}
	return nil
}

func parseTemplateList(s string) ([]uint16, error) {
	var ids []uint16
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad template id %q", part)
		}
		ids = append(ids, uint16(id))
	}
	return ids, nil
}
