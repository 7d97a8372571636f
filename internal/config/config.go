// Load envs from .env
// Load YAML config
// Apply env overrides
// Provide default values and validate

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "configs/config.yaml"

type Config struct {
	//Paths
	ProfilePath   string `yaml:"profile_path" env:"SCRAPER_PROFILE_PATH"`
	OutputDir     string `yaml:"output_dir" env:"SCRAPER_OUTPUT_DIR"`
	MarkdownDir   string `yaml:"markdown_dir" env:"SCRAPER_MARKDOWN_DIR"`
	ScreenshotDir string `yaml:"screenshot_dir" env:"SCRAPER_SCREENSHOT_DIR"`

	//Browser & batch behaviour
	Headless      bool          `yaml:"headless" env:"SCRAPER_HEADLESS"`
	UseProfile    bool          `yaml:"use_profile" env:"SCRAPER_USE_PROFILE"`
	Concurrency   int           `yaml:"concurrency" env:"SCRAPER_CONCURRENCY"`
	Retries       int           `yaml:"retries" env:"SCRAPER_RETRIES"`
	Timeout       time.Duration `yaml:"timeout" env:"SCRAPER_TIMEOUT"`
	Backoff       time.Duration `yaml:"backoff"`
	MaxBackoff    time.Duration `yaml:"max_backoff"`
	RatePerSec    float64       `yaml:"rate_per_sec"`
	WriteMarkdown bool          `yaml:"markdown"`

	//Logging
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	//Web front-end
	ServerAddr string `yaml:"server_addr"`

	//Optional batch summary notification
	TelegramToken  string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
}

// RunOptions is what the CLI and the web front-end hand to the runner for one batch.
type RunOptions struct {
	URL         string
	BatchFile   string
	URLs        []string
	Markdown    bool
	OutputDir   string
	MarkdownDir string
	Headless    bool
}

// JobsFile is the aggregate JSON path inside the output directory.
func (o RunOptions) JobsFile() string {
	return filepath.Join(o.OutputDir, "jobs.json")
}

// MarkdownTarget falls back to the JSON directory when no Markdown directory is set.
func (o RunOptions) MarkdownTarget() string {
	if o.MarkdownDir != "" {
		return o.MarkdownDir
	}
	return o.OutputDir
}

// Default returns the configuration used when no file or env overrides are present.
func Default() *Config {
	return &Config{
		ProfilePath: DefaultProfilePath(),
		OutputDir:   "./output",
		Headless:    true,
		UseProfile:  true,
		Concurrency: 1,
		Retries:     2,
		Timeout:     30 * time.Second,
		Backoff:     time.Second,
		MaxBackoff:  15 * time.Second,
		RatePerSec:  2,
		LogLevel:    "info",
		LogFormat:   "console",
		ServerAddr:  ":5000",
	}
}

// DefaultProfilePath is the storage-state blob inside a dot-directory in the user's home.
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".linkedin-scraper", "storage-state.json")
}

// Load reads .env, then the YAML file at path (missing file is fine), then env overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		//no config file, defaults + env only
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.ProfilePath = expandHome(cfg.ProfilePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandHome resolves a leading "~/" so the yaml file can point into the home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

func applyEnv(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := range t.NumField() {
		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		if err := setField(v.Field(i), raw); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	//PORT is a bare port number, ServerAddr a listen address
	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerAddr = ":" + port
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// Validate rejects values the batch cannot run with.
func (c *Config) Validate() error {
	if c.ProfilePath == "" {
		return errors.New("profile_path is required")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", c.Retries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

// NotifyEnabled reports whether the Telegram summary should be sent.
func (c *Config) NotifyEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}
