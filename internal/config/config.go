package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	GinMode         string   `mapstructure:"GIN_MODE"`
	LogLevel        string   `mapstructure:"LOG_LEVEL"`
	EnableDB        bool     `mapstructure:"ENABLE_DB"`
	DBDriver        string   `mapstructure:"DB_DRIVER"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	SQLitePath      string   `mapstructure:"SQLITE_PATH"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	RulesFile       string   `mapstructure:"RULES_FILE"`
	AdminJWTSecret  string   `mapstructure:"ADMIN_JWT_SECRET"`
	RateLimitRPS    float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int      `mapstructure:"RATE_LIMIT_BURST"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	AmbulanceNumber string   `mapstructure:"AMBULANCE_NUMBER"`
}

var keys = []string{
	"PORT", "ENV", "GIN_MODE", "LOG_LEVEL",
	"ENABLE_DB", "DB_DRIVER", "DATABASE_URL", "SQLITE_PATH", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"RULES_FILE", "ADMIN_JWT_SECRET",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ORIGINS",
	"AMBULANCE_NUMBER",
}

// Load reads configuration from the environment, after merging a .env
// file when one is present. The result is validated.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENABLE_DB", false)
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("SQLITE_PATH", "data/emergency.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("AMBULANCE_NUMBER", "911")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// a comma separated env value arrives as a single element
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// AdminEnabled reports whether the rule administration routes are served.
func (c *Config) AdminEnabled() bool {
	return c.AdminJWTSecret != ""
}

func (c *Config) Validate() error {
	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if c.EnableDB && c.DBDriver == DriverPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true and DB_DRIVER=postgres")
	}
	if c.EnableDB && c.DBDriver == DriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when ENABLE_DB=true and DB_DRIVER=sqlite")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
