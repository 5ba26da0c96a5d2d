package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gomag    GomagConfig
	Sources  SourcesConfig
	Export   ExportConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	RateLimitMin time.Duration
	RateLimitMax time.Duration
	MaxRetries   int
	FetchTimeout time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	UserAgent      string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GomagConfig holds the shop admin credentials and the backend paths the
// import automation drives. Selectors are configurable because Gomag ships
// two backend skins with different login markup.
type GomagConfig struct {
	BaseURL          string
	Email            string
	Password         string
	EmailSelector    string
	PasswordSelector string
	SubmitSelector   string
	CategoriesPath   string
	ImportAddPath    string
	ImportListPath   string
	ArtifactDir      string
}

// SourcesConfig holds credentials for the login-gated supplier catalogs.
type SourcesConfig struct {
	PSIUser string
	PSIPass string
	XDUser  string
	XDPass  string
}

type ExportConfig struct {
	TemplatePath string
	VATRate      int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			RateLimitMin: getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 1*time.Second),
			RateLimitMax: getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 4*time.Second),
			MaxRetries:   getIntOrDefault("SCRAPER_MAX_RETRIES", 4),
			FetchTimeout: getDurationOrDefault("SCRAPER_FETCH_TIMEOUT", 30*time.Second),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 60*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1366),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 768),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "ro-RO,ro;q=0.9,en-US;q=0.8,en;q=0.7"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Bucharest"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "ro-RO"),
			UserAgent: getEnvOrDefault("BROWSER_USER_AGENT",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "gomag_importer"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Gomag: GomagConfig{
			BaseURL:          getEnvOrDefault("GOMAG_BASE_URL", ""),
			Email:            getEnvOrDefault("GOMAG_EMAIL", ""),
			Password:         getEnvOrDefault("GOMAG_PASSWORD", ""),
			EmailSelector:    getEnvOrDefault("GOMAG_EMAIL_SELECTOR", `input[name="email"], input[type="email"]`),
			PasswordSelector: getEnvOrDefault("GOMAG_PASSWORD_SELECTOR", `input[name="password"], input[type="password"]`),
			SubmitSelector: getEnvOrDefault("GOMAG_SUBMIT_SELECTOR",
				`button[type="submit"], button:has-text("Autentificare"), button:has-text("Login")`),
			CategoriesPath: getEnvOrDefault("GOMAG_CATEGORIES_PATH", "/gomag/product/category/list"),
			ImportAddPath:  getEnvOrDefault("GOMAG_IMPORT_ADD_PATH", "/gomag/product/import/add"),
			ImportListPath: getEnvOrDefault("GOMAG_IMPORT_LIST_PATH", "/gomag/product/import/list"),
			ArtifactDir:    getEnvOrDefault("GOMAG_ARTIFACT_DIR", "debug_artifacts"),
		},
		Sources: SourcesConfig{
			PSIUser: getEnvOrDefault("PSI_USER", ""),
			PSIPass: getEnvOrDefault("PSI_PASS", ""),
			XDUser:  getEnvOrDefault("XD_USER", ""),
			XDPass:  getEnvOrDefault("XD_PASS", ""),
		},
		Export: ExportConfig{
			TemplatePath: getEnvOrDefault("EXPORT_TEMPLATE_PATH", "assets/modelImport.xlsx"),
			VATRate:      getIntOrDefault("EXPORT_VAT_RATE", 21),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Export.VATRate < 0 || c.Export.VATRate > 100 {
		return fmt.Errorf("EXPORT_VAT_RATE must be a percentage")
	}

	return nil
}

// GomagConfigured reports whether the admin automation can run at all.
func (c *Config) GomagConfigured() bool {
	g := c.Gomag
	return strings.TrimSpace(g.BaseURL) != "" &&
		strings.TrimSpace(g.Email) != "" &&
		strings.TrimSpace(g.Password) != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
