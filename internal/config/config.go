package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const EnvDevelopment = "development"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Google    GoogleConfig    `yaml:"google"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Agent     AgentConfig     `yaml:"agent"`
	Patient   PatientConfig   `yaml:"patient"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowOrigins   []string      `yaml:"allow_origins"`
	TrustedProxies []string      `yaml:"trusted_proxies"`
	MaxImagePixels int           `yaml:"max_image_pixels"`
}

// GoogleConfig selects the Gemini endpoint. With APIKey set the public
// generativelanguage API is used; otherwise Vertex AI in Project/Region.
type GoogleConfig struct {
	Project         string        `yaml:"project"`
	Region          string        `yaml:"region"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	ExtractionModel string        `yaml:"extraction_model"`
	SummaryModel    string        `yaml:"summary_model"`
	ChatModel       string        `yaml:"chat_model"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxConcurrent   int64         `yaml:"max_concurrent"`
}

type DatabaseConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Name     string        `yaml:"name"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

type AgentConfig struct {
	Location      string        `yaml:"location"`
	SearchURL     string        `yaml:"search_url"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
}

type PatientConfig struct {
	ID string `yaml:"id"`
}

type RateLimitConfig struct {
	Every time.Duration `yaml:"every"`
	Burst int           `yaml:"burst"`
}

func Default() *Config {
	return &Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Port:           8080,
			MaxUploadBytes: 16 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   180 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowOrigins:   []string{"*"},
			MaxImagePixels: 40_000_000,
		},
		Log: LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Google: GoogleConfig{
			ExtractionModel: "gemini-2.5-flash-image",
			SummaryModel:    "gemini-2.5-flash",
			ChatModel:       "gemini-2.5-flash",
			Timeout:         60 * time.Second,
			MaxConcurrent:   4,
		},
		Database:  DatabaseConfig{Port: 3306, Name: "healthscope", Timeout: 5 * time.Second},
		Session:   SessionConfig{CookieName: "hs_session", TTL: 2 * time.Hour},
		Agent:     AgentConfig{Location: "Bengaluru", SearchURL: "https://api.duckduckgo.com/", SearchTimeout: 10 * time.Second},
		Patient:   PatientConfig{ID: "patient_blr_01"},
		RateLimit: RateLimitConfig{Every: 600 * time.Millisecond, Burst: 20},
	}
}

// Load reads the first config file found, then .env, then environment
// overrides. An explicit configFile must exist, and any file found must
// parse. It does not validate; call Validate before serving.
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := []string{"etc/config-dev.yaml", "/etc/healthscope/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if configFile != "" {
				return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
		break
	}

	_ = godotenv.Load()

	envOverride(&c.Env, "APP_ENV")
	envOverride(&c.Google.Project, "GCP_PROJECT_ID")
	envOverride(&c.Google.Region, "GCP_REGION")
	envOverride(&c.Google.APIKey, "GEMINI_API_KEY")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASS")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Session.Secret, "SESSION_SECRET")
	envOverride(&c.Agent.Location, "AGENT_LOCATION")
	envOverride(&c.Patient.ID, "PATIENT_ID")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")

	return c, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// UseVertex reports whether model calls go through Vertex AI.
func (c *Config) UseVertex() bool {
	return c.Google.APIKey == ""
}

// Validate rejects configurations that would otherwise run with placeholder
// identities. Development only needs a way to reach the models.
func (c *Config) Validate() error {
	var missing []string
	if c.UseVertex() {
		if c.Google.Project == "" {
			missing = append(missing, "google.project (GCP_PROJECT_ID)")
		}
		if c.Google.Region == "" {
			missing = append(missing, "google.region (GCP_REGION)")
		}
	}
	if !c.IsDevelopment() {
		if len(c.Session.Secret) < 32 {
			missing = append(missing, "session.secret (SESSION_SECRET, at least 32 chars)")
		}
		if c.Database.Host == "" {
			missing = append(missing, "database.host (DB_HOST)")
		}
	}
	if c.Patient.ID == "" {
		missing = append(missing, "patient.id (PATIENT_ID)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// HasDatabase reports whether a MySQL host is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.Host != ""
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	cfg := gomysql.NewConfig()
	cfg.User = c.Database.User
	cfg.Passwd = c.Database.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
	cfg.DBName = c.Database.Name
	cfg.ParseTime = true
	cfg.Timeout = c.Database.Timeout

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
