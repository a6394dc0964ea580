package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Credentials struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"credentials"`

	API struct {
		WebBaseURL        string  `yaml:"web_base_url"`
		BookingBaseURL    string  `yaml:"booking_base_url"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		CacheTTLSeconds   int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	// Rooms maps a room name to the hall id the service uses for it.
	Rooms map[string]int `yaml:"rooms"`

	Booking struct {
		Room            string `yaml:"room"`
		ShiftStart      string `yaml:"shift_start"`
		ShiftEnd        string `yaml:"shift_end"`
		DaysAhead       int    `yaml:"days_ahead"`
		ExcludeWeekdays string `yaml:"exclude_weekdays"`
		Timezone        string `yaml:"timezone"`
	} `yaml:"booking"`

	Ledger struct {
		Path   string `yaml:"path"`
		Backup struct {
			Enabled       bool   `yaml:"enabled"`
			IntervalHours int    `yaml:"interval_hours"`
			Path          string `yaml:"path"`
			RetentionDays int    `yaml:"retention_days"`
		} `yaml:"backup"`
	} `yaml:"ledger"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Report struct {
		ExcelPath string `yaml:"excel_path"`
		Sheets    struct {
			SpreadsheetID   string `yaml:"spreadsheet_id"`
			CredentialsFile string `yaml:"credentials_file"`
			SheetName       string `yaml:"sheet_name"`
		} `yaml:"sheets"`
	} `yaml:"report"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
		HealthCheckPort   int  `yaml:"health_check_port"`
	} `yaml:"monitoring"`

	Daemon struct {
		Enabled       bool `yaml:"enabled"`
		IntervalHours int  `yaml:"interval_hours"`
	} `yaml:"daemon"`
}

// Load reads the YAML config, expanding ${ENV_VAR} placeholders so
// credentials can stay out of the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if cfg.Ledger.Path != "" {
		if err = os.MkdirAll(filepath.Dir(cfg.Ledger.Path), 0o755); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Default returns a config with only the defaults applied, for runs
// driven entirely by command-line flags.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.API.WebBaseURL == "" {
		c.API.WebBaseURL = "https://edisuprenotazioni.edisu-piemonte.it:8443/sbs"
	}
	if c.API.BookingBaseURL == "" {
		// The booking endpoint lives on the default port, unlike the
		// rest of the web API.
		c.API.BookingBaseURL = "https://edisuprenotazioni.edisu-piemonte.it/sbs"
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 10
	}
	if c.Rooms == nil {
		c.Rooms = map[string]int{
			"michelangelo": 1,
			"ormea":        3,
			"verdi":        6,
		}
	}
	if c.Booking.Room == "" {
		c.Booking.Room = "verdi"
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "Europe/Rome"
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/aulabot.db"
	}
	if c.Daemon.IntervalHours <= 0 {
		c.Daemon.IntervalHours = 12
	}
}

// APITimeout returns the HTTP client timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// CacheTTL returns the availability cache TTL; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

// DaemonInterval returns the re-planning interval for daemon mode.
func (c *Config) DaemonInterval() time.Duration {
	return time.Duration(c.Daemon.IntervalHours) * time.Hour
}

// HallID resolves a room name, failing on unknown rooms.
func (c *Config) HallID(room string) (int, error) {
	id, ok := c.Rooms[room]
	if !ok {
		return 0, fmt.Errorf("unknown room %q", room)
	}
	return id, nil
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Booking.Timezone)
}
