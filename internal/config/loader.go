package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Storage drivers accepted by CALENDAR_STORAGE.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Log formats accepted by CALENDAR_LOG_FORMAT.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// SMTPConfig configures outbound mail. Mail is disabled when Host is empty.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Enabled reports whether invitations and reminders go out by mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Config captures the settings of the calendar service.
type Config struct {
	HTTPPort         int        `yaml:"http_port"`
	Storage          string     `yaml:"storage"`
	SQLiteDSN        string     `yaml:"sqlite_dsn"`
	Timezone         string     `yaml:"timezone"`
	DayReminderCron  string     `yaml:"day_reminder_cron"`
	TimeReminderCron string     `yaml:"time_reminder_cron"`
	DispatchWorkers  int        `yaml:"dispatch_workers"`
	DispatchQueue    int        `yaml:"dispatch_queue"`
	LogFormat        string     `yaml:"log_format"`
	LogLevel         string     `yaml:"log_level"`
	SMTP             SMTPConfig `yaml:"smtp"`

	// Location is the parsed Timezone.
	Location *time.Location `yaml:"-"`
	// Level is the parsed LogLevel.
	Level slog.Level `yaml:"-"`
}

func defaults() Config {
	return Config{
		HTTPPort:         8080,
		Storage:          StorageSQLite,
		SQLiteDSN:        "calendar.db",
		Timezone:         "UTC",
		DayReminderCron:  "0 8 * * *",
		TimeReminderCron: "0,30 * * * *",
		DispatchWorkers:  4,
		DispatchQueue:    256,
		LogFormat:        LogFormatJSON,
		LogLevel:         "info",
		SMTP:             SMTPConfig{Port: 587},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CALENDAR_CONFIG_FILE and the process environment, in increasing order of
// precedence. A .env file in the working directory is loaded into the
// environment first when present; variables already set win over it.
//
// Missing and invalid keys are collected and reported together.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf(".env の読み込みに失敗しました: %w", err)
	}

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CALENDAR_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	envString("CALENDAR_STORAGE", &cfg.Storage)
	envString("CALENDAR_SQLITE_DSN", &cfg.SQLiteDSN)
	envString("CALENDAR_TIMEZONE", &cfg.Timezone)
	envString("CALENDAR_DAY_REMINDER_CRON", &cfg.DayReminderCron)
	envString("CALENDAR_TIME_REMINDER_CRON", &cfg.TimeReminderCron)
	envString("CALENDAR_LOG_FORMAT", &cfg.LogFormat)
	envString("CALENDAR_LOG_LEVEL", &cfg.LogLevel)
	envString("CALENDAR_SMTP_HOST", &cfg.SMTP.Host)
	envString("CALENDAR_SMTP_USERNAME", &cfg.SMTP.Username)
	envString("CALENDAR_SMTP_PASSWORD", &cfg.SMTP.Password)
	envString("CALENDAR_SMTP_FROM", &cfg.SMTP.From)

	invalid = envInt("CALENDAR_HTTP_PORT", &cfg.HTTPPort, invalid)
	invalid = envInt("CALENDAR_DISPATCH_WORKERS", &cfg.DispatchWorkers, invalid)
	invalid = envInt("CALENDAR_DISPATCH_QUEUE", &cfg.DispatchQueue, invalid)
	invalid = envInt("CALENDAR_SMTP_PORT", &cfg.SMTP.Port, invalid)

	if cfg.HTTPPort <= 0 && !slices.Contains(invalid, "CALENDAR_HTTP_PORT") {
		invalid = append(invalid, "CALENDAR_HTTP_PORT")
	}
	if cfg.DispatchWorkers <= 0 && !slices.Contains(invalid, "CALENDAR_DISPATCH_WORKERS") {
		invalid = append(invalid, "CALENDAR_DISPATCH_WORKERS")
	}
	if cfg.DispatchQueue <= 0 && !slices.Contains(invalid, "CALENDAR_DISPATCH_QUEUE") {
		invalid = append(invalid, "CALENDAR_DISPATCH_QUEUE")
	}

	switch cfg.Storage {
	case StorageSQLite:
		if cfg.SQLiteDSN == "" {
			missing = append(missing, "CALENDAR_SQLITE_DSN")
		}
	case StorageMemory:
	default:
		invalid = append(invalid, "CALENDAR_STORAGE")
	}

	if location, err := time.LoadLocation(cfg.Timezone); err != nil || cfg.Timezone == "" {
		invalid = append(invalid, "CALENDAR_TIMEZONE")
	} else {
		cfg.Location = location
	}

	if _, err := cron.ParseStandard(cfg.DayReminderCron); err != nil {
		invalid = append(invalid, "CALENDAR_DAY_REMINDER_CRON")
	}
	if _, err := cron.ParseStandard(cfg.TimeReminderCron); err != nil {
		invalid = append(invalid, "CALENDAR_TIME_REMINDER_CRON")
	}

	switch cfg.LogFormat {
	case LogFormatJSON, LogFormatText:
	default:
		invalid = append(invalid, "CALENDAR_LOG_FORMAT")
	}
	if err := cfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		invalid = append(invalid, "CALENDAR_LOG_LEVEL")
	}

	if cfg.SMTP.Enabled() {
		if cfg.SMTP.From == "" {
			missing = append(missing, "CALENDAR_SMTP_FROM")
		}
		if cfg.SMTP.Port <= 0 && !slices.Contains(invalid, "CALENDAR_SMTP_PORT") {
			invalid = append(invalid, "CALENDAR_SMTP_PORT")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルを読み込めません: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("設定ファイルの形式が不正です: %s: %w", path, err)
	}
	return nil
}

func envString(key string, target *string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}

func envInt(key string, target *int, invalid []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return invalid
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return append(invalid, key)
	}
	*target = n
	return invalid
}
