package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "blokid",
				Password: "secret",
				Name:     "blokid",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=blokid password=secret dbname=blokid sslmode=require",
		},
		{
			name: "disable ssl mode",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "admin",
				Password: "pass",
				Name:     "mydb",
				SSLMode:  "disable",
			},
			want: "host=db.example.com port=5433 user=admin password=pass dbname=mydb sslmode=disable",
		},
		{
			name: "empty password",
			cfg: DatabaseConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "user",
				Name:    "dbname",
				SSLMode: "prefer",
			},
			want: "host=localhost port=5432 user=user password= dbname=dbname sslmode=prefer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetDSN(); got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress / AuthConfig.AccessTokenTTL
// ---------------------------------------------------------------------------

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8000}, "0.0.0.0:8000"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Host: "", Port: 8080}, ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetAddress(); got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessTokenTTL(t *testing.T) {
	a := AuthConfig{AccessTokenExpireMinutes: 30}
	if got := a.AccessTokenTTL(); got != 30*time.Minute {
		t.Errorf("AccessTokenTTL() = %v, want 30m", got)
	}
}

// ---------------------------------------------------------------------------
// Config.Validate
// ---------------------------------------------------------------------------

func minimalValidConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8000,
			BaseURL: "http://localhost:8000",
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Name: "blokid",
			User: "blokid",
		},
		Auth: AuthConfig{
			JWTSecret:                testSecret,
			JWTAlgorithm:             "HS256",
			AccessTokenExpireMinutes: 30,
			BcryptCost:               10,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid minimal config passes", func(t *testing.T) {
		if err := minimalValidConfig().Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	invalid := []struct {
		name   string
		mutate func(*Config)
	}{
		{"server port 0", func(c *Config) { c.Server.Port = 0 }},
		{"server port 70000", func(c *Config) { c.Server.Port = 70000 }},
		{"missing base_url", func(c *Config) { c.Server.BaseURL = "" }},
		{"missing database host", func(c *Config) { c.Database.Host = "" }},
		{"missing database name", func(c *Config) { c.Database.Name = "" }},
		{"missing database user", func(c *Config) { c.Database.User = "" }},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"unsupported jwt algorithm", func(c *Config) { c.Auth.JWTAlgorithm = "RS256" }},
		{"zero token lifetime", func(c *Config) { c.Auth.AccessTokenExpireMinutes = 0 }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"bcrypt cost too high", func(c *Config) { c.Auth.BcryptCost = 40 }},
		{"tls missing cert_file", func(c *Config) { c.Security.TLS = TLSConfig{Enabled: true, KeyFile: "key.pem"} }},
		{"tls missing key_file", func(c *Config) { c.Security.TLS = TLSConfig{Enabled: true, CertFile: "cert.pem"} }},
		{"notifications missing smtp host", func(c *Config) {
			c.Notifications = NotificationsConfig{Enabled: true, SMTP: SMTPConfig{From: "noreply@example.com"}}
		}},
		{"notifications missing from", func(c *Config) {
			c.Notifications = NotificationsConfig{Enabled: true, SMTP: SMTPConfig{Host: "smtp.example.com"}}
		}},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() expected error for %s, got nil", tt.name)
			}
		})
	}

	t.Run("dev mode allows empty jwt secret", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Server.DevMode = true
		cfg.Auth.JWTSecret = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error in dev mode: %v", err)
		}
	})

	t.Run("complete smtp settings pass", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Notifications = NotificationsConfig{
			Enabled: true,
			SMTP:    SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"},
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("all valid log levels pass", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			cfg := minimalValidConfig()
			cfg.Logging.Level = level
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error for log level %q: %v", level, err)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// Load – defaults and env var expansion
// ---------------------------------------------------------------------------

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for explicit missing config file, got nil")
	}
	if !strings.Contains(err.Error(), "error reading config file") {
		t.Fatalf("Load() unexpected error kind: %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Run("expands ${VAR} syntax", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_SECRET", "super-secret")
		if got := expandEnv("${CONFIG_TEST_SECRET}"); got != "super-secret" {
			t.Errorf("expandEnv() = %q, want %q", got, "super-secret")
		}
	})

	t.Run("plain string passthrough", func(t *testing.T) {
		if got := expandEnv("no-vars-here"); got != "no-vars-here" {
			t.Errorf("expandEnv() = %q, want %q", got, "no-vars-here")
		}
	})

	t.Run("unset variable expands to empty string", func(t *testing.T) {
		os.Unsetenv("CONFIG_TEST_DEFINITELY_UNSET_12345")
		if got := expandEnv("${CONFIG_TEST_DEFINITELY_UNSET_12345}"); got != "" {
			t.Errorf("expandEnv() = %q, want empty string", got)
		}
	})
}

// ---------------------------------------------------------------------------
// Load – with config file
// ---------------------------------------------------------------------------

// writeTempConfig creates a temp YAML file and registers a cleanup to remove it.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "config-test-*.yaml")
	if err != nil {
		t.Fatal("CreateTemp:", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		t.Fatal("WriteString:", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_WithConfigFile(t *testing.T) {
	const content = `
server:
  host: "testhost"
  port: 9999
  base_url: "http://testhost:9999"
database:
  host: "dbhost"
  name: "testdb"
  user: "testuser"
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
  access_token_expire_minutes: 60
logging:
  level: "debug"
`
	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "testhost" {
		t.Errorf("Server.Host = %q, want testhost", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Host != "dbhost" {
		t.Errorf("Database.Host = %q, want dbhost", cfg.Database.Host)
	}
	if cfg.Auth.AccessTokenExpireMinutes != 60 {
		t.Errorf("Auth.AccessTokenExpireMinutes = %d, want 60", cfg.Auth.AccessTokenExpireMinutes)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	const content = `
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
`
	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("default Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("default Database.SSLMode = %q, want require", cfg.Database.SSLMode)
	}
	if cfg.Auth.JWTAlgorithm != "HS256" {
		t.Errorf("default Auth.JWTAlgorithm = %q, want HS256", cfg.Auth.JWTAlgorithm)
	}
	if cfg.Auth.AccessTokenExpireMinutes != 30 {
		t.Errorf("default Auth.AccessTokenExpireMinutes = %d, want 30", cfg.Auth.AccessTokenExpireMinutes)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Errorf("default Auth.BcryptCost = %d, want 12", cfg.Auth.BcryptCost)
	}
	if cfg.Notifications.Enabled {
		t.Error("default Notifications.Enabled = true, want false")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("BLOKID_DATABASE_HOST", "envhost")
	t.Setenv("BLOKID_AUTH_JWT_SECRET", "fedcba9876543210fedcba9876543210")
	const content = `
database:
  host: "filehost"
`
	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Host != "envhost" {
		t.Errorf("Database.Host = %q, want envhost", cfg.Database.Host)
	}
	if cfg.Auth.JWTSecret != "fedcba9876543210fedcba9876543210" {
		t.Errorf("Auth.JWTSecret = %q, want env value", cfg.Auth.JWTSecret)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASS", "mysecret")
	const content = `
database:
  password: "${TEST_DB_PASS}"
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
`
	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Password != "mysecret" {
		t.Errorf("Database.Password = %q, want mysecret", cfg.Database.Password)
	}
}

func TestLoad_MissingSecretRejected(t *testing.T) {
	_, err := Load(writeTempConfig(t, "logging:\n  level: info\n"))
	if err == nil {
		t.Fatal("Load() expected error without auth.jwt_secret, got nil")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Load() error = %v, want invalid configuration", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeTempConfig(t, "server: [unclosed")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}
