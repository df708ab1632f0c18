// Package config provides configuration loading and validation for the
// auto-leech monitor. The process environment is the primary source; an
// optional JSON file fills whatever the environment leaves unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/autoleech/internal/schemas"
	"github.com/jonathan/autoleech/internal/types"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultTelegramAPIURL = "https://api.telegram.org"
	DefaultCommand        = "autotbl"
	DefaultLeechCommand   = "qbleech"
	DefaultBaseURL        = "https://www.1tamilmv.land/"
	DefaultMaxTopics      = 15
	DefaultPollInterval   = 15 * time.Minute
	DefaultFetchTimeout   = 10 * time.Second
	DefaultCaptionTag     = "#tmv torrent file"
	DefaultWorkers        = 4
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Duration is a time.Duration that reads "15m"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON parses a Go duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON renders the duration as a Go duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete runtime configuration.
type Config struct {
	// Telegram
	BotToken       string        `json:"bot_token,omitempty"`
	TelegramAPIURL string        `json:"telegram_api_url,omitempty" validate:"omitempty,url"`
	UploadChat     types.ChatRef `json:"upload_chat,omitempty"`  // AUTO_TBL_CHANNEL
	CommandChat    types.ChatRef `json:"command_chat,omitempty"` // AUTO_TBL_COMMAND_CHAT

	// Operators
	OwnerID      int64   `json:"owner_id,omitempty" validate:"gte=0"`
	SudoUsers    []int64 `json:"sudo_users,omitempty"`
	Command      string  `json:"command,omitempty" validate:"omitempty,max=32,excludesall=/@"`
	LeechCommand string  `json:"leech_command,omitempty" validate:"omitempty,max=32"`

	// Source
	BaseURL       string   `json:"base_url,omitempty" validate:"omitempty,url"`
	MaxTopics     int      `json:"max_topics,omitempty" validate:"gte=0,lte=100"`
	PollInterval  Duration `json:"poll_interval,omitempty" validate:"gte=0"`
	FetchTimeout  Duration `json:"fetch_timeout,omitempty" validate:"gte=0"`
	UseBrowser    bool     `json:"use_browser,omitempty"`
	CaptionTag    string   `json:"caption_tag,omitempty"`
	DedupCapacity int      `json:"dedup_capacity,omitempty" validate:"gte=0"`
	Workers       int      `json:"workers,omitempty" validate:"gte=0,lte=64"`

	// qBittorrent; empty URL selects relay mode
	QbitURL      string `json:"qbit_url,omitempty" validate:"omitempty,url"`
	QbitUsername string `json:"qbit_username,omitempty"`
	QbitPassword string `json:"qbit_password,omitempty"`
	QbitCategory string `json:"qbit_category,omitempty"`

	// Optional services
	DatabaseURL string `json:"database_url,omitempty"`
	HTTPAddr    string `json:"http_addr,omitempty"`

	// Logging
	LogLevel  string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `json:"log_format,omitempty" validate:"omitempty,oneof=text json"`
}

// FromEnv reads the configuration from environment variables. Unset
// variables leave fields at their zero value.
func FromEnv() (*Config, error) {
	cfg := &Config{
		BotToken:       env("TELEGRAM_BOT_TOKEN"),
		TelegramAPIURL: env("TELEGRAM_API_URL"),
		UploadChat:     types.ChatRef(env("AUTO_TBL_CHANNEL")),
		CommandChat:    types.ChatRef(env("AUTO_TBL_COMMAND_CHAT")),
		Command:        strings.TrimPrefix(env("AUTO_TBL_COMMAND"), "/"),
		LeechCommand:   strings.TrimPrefix(env("LEECH_COMMAND"), "/"),
		BaseURL:        env("TBL_BASE_URL"),
		CaptionTag:     env("TBL_CAPTION_TAG"),
		QbitURL:        env("QBIT_URL"),
		QbitUsername:   env("QBIT_USERNAME"),
		QbitPassword:   env("QBIT_PASSWORD"),
		QbitCategory:   env("QBIT_CATEGORY"),
		DatabaseURL:    env("DATABASE_URL"),
		HTTPAddr:       env("HTTP_ADDR"),
		LogLevel:       strings.ToLower(env("LOG_LEVEL")),
		LogFormat:      strings.ToLower(env("LOG_FORMAT")),
	}

	var err error
	if cfg.OwnerID, err = envInt64("OWNER_ID"); err != nil {
		return nil, err
	}
	if cfg.SudoUsers, err = ParseIDList(env("SUDO_USERS")); err != nil {
		return nil, fmt.Errorf("invalid SUDO_USERS: %w", err)
	}
	if cfg.MaxTopics, err = envInt("TBL_MAX_TOPICS"); err != nil {
		return nil, err
	}
	if cfg.DedupCapacity, err = envInt("TBL_DEDUP_CAPACITY"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = envInt("TBL_WORKERS"); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = envDuration("TBL_POLL_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("TBL_FETCH_TIMEOUT"); err != nil {
		return nil, err
	}
	if v := env("TBL_USE_BROWSER"); v != "" {
		if cfg.UseBrowser, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid TBL_USE_BROWSER: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfig loads configuration from a JSON file after validating it
// against the embedded schema.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := schemas.ValidateConfig(data); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// Load builds the effective configuration: environment first, then the
// optional file at path, then built-in defaults.
func Load(path string) (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		merged := cfg.MergeWithDefaults(*fileCfg)
		cfg = &merged
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.BotToken, defaults.BotToken)
	mergeString(&result.TelegramAPIURL, defaults.TelegramAPIURL)
	if result.UploadChat.IsZero() {
		result.UploadChat = defaults.UploadChat
	}
	if result.CommandChat.IsZero() {
		result.CommandChat = defaults.CommandChat
	}
	mergeString(&result.Command, defaults.Command)
	mergeString(&result.LeechCommand, defaults.LeechCommand)
	mergeString(&result.BaseURL, defaults.BaseURL)
	mergeString(&result.CaptionTag, defaults.CaptionTag)
	mergeString(&result.QbitURL, defaults.QbitURL)
	mergeString(&result.QbitUsername, defaults.QbitUsername)
	mergeString(&result.QbitPassword, defaults.QbitPassword)
	mergeString(&result.QbitCategory, defaults.QbitCategory)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.HTTPAddr, defaults.HTTPAddr)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.LogFormat, defaults.LogFormat)

	if result.OwnerID == 0 {
		result.OwnerID = defaults.OwnerID
	}
	if len(result.SudoUsers) == 0 {
		result.SudoUsers = slices.Clone(defaults.SudoUsers)
	}
	if result.MaxTopics == 0 {
		result.MaxTopics = defaults.MaxTopics
	}
	if result.PollInterval == 0 {
		result.PollInterval = defaults.PollInterval
	}
	if result.FetchTimeout == 0 {
		result.FetchTimeout = defaults.FetchTimeout
	}
	if result.DedupCapacity == 0 {
		result.DedupCapacity = defaults.DedupCapacity
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}

	// Bools cannot distinguish unset from false; either source may enable.
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser

	return result
}

// ApplyDefaults fills unset fields with built-in defaults.
func (c *Config) ApplyDefaults() {
	mergeString(&c.TelegramAPIURL, DefaultTelegramAPIURL)
	mergeString(&c.Command, DefaultCommand)
	mergeString(&c.LeechCommand, DefaultLeechCommand)
	mergeString(&c.BaseURL, DefaultBaseURL)
	mergeString(&c.CaptionTag, DefaultCaptionTag)
	mergeString(&c.LogLevel, DefaultLogLevel)
	mergeString(&c.LogFormat, DefaultLogFormat)
	if c.MaxTopics == 0 {
		c.MaxTopics = DefaultMaxTopics
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = Duration(DefaultFetchTimeout)
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

// Validate checks that the configuration has valid values. Fields that are
// only needed by the serve command are checked by ValidateServe.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.QbitURL != "" && c.QbitUsername == "" && c.QbitPassword != "" {
		return fmt.Errorf("config error: 'qbit_password' is set without 'qbit_username'")
	}
	if c.OwnerID != 0 && slices.Contains(c.SudoUsers, c.OwnerID) {
		return fmt.Errorf("config error: owner %d is also listed in 'sudo_users'", c.OwnerID)
	}
	return nil
}

// ValidateServe checks the fields the serve command cannot run without.
// A missing upload chat is not an error here: the monitor reports it to the
// operator when asked to start.
func (c *Config) ValidateServe() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("config error: TELEGRAM_BOT_TOKEN is required")
	}
	if c.OwnerID == 0 {
		return fmt.Errorf("config error: OWNER_ID is required")
	}
	return nil
}

// IsOperator reports whether userID may issue monitor commands.
func (c *Config) IsOperator(userID int64) bool {
	if userID == 0 {
		return false
	}
	return userID == c.OwnerID || slices.Contains(c.SudoUsers, userID)
}

// ParseIDList parses a space or comma separated list of user ids.
func ParseIDList(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string) (int, error) {
	v := env(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envInt64(key string) (int64, error) {
	v := env(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string) (Duration, error) {
	v := env(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return Duration(d), nil
}

func mergeString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
