package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address          string
		DebugHost        string
		Host             string
		FrontendBaseURL  string
		ShutdownTimeout  time.Duration
		DisableReqLogs   bool
		AllowedOrigins   []string
		RequestBodyLimit string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	AuthConfig struct {
		JWTSecret string
		Audience  string
	}

	HolidaysConfig struct {
		Enabled    bool
		BaseURL    string
		Country    string
		Timeout    time.Duration
		RetryAfter time.Duration // failed fetches are not retried before
	}

	EmailConfig struct {
		DefaultFrom    string
		SendgridApiKey string
	}

	Config struct {
		Env          string
		AppName      string
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Auth     AuthConfig
		Holidays HolidaysConfig
		Email    EmailConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DefaultFromEmail parses Email.DefaultFrom, falling back to a bare noreply address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.Email.DefaultFrom)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment (DEV by default) and is also the env var prefix, eg: DEV_SERVER_ADDRESS.
// config/.env.<env> is loaded first when it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(strings.TrimSpace(os.Getenv("ENV"))) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	setDefaults(v, env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:          v.GetString("server.address"),
			DebugHost:        v.GetString("server.debugHost"),
			Host:             v.GetString("server.host"),
			FrontendBaseURL:  v.GetString("server.frontendBaseURL"),
			ShutdownTimeout:  v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:   v.GetBool("server.disableReqLogs"),
			AllowedOrigins:   v.GetStringSlice("server.allowedOrigins"),
			RequestBodyLimit: v.GetString("server.requestBodyLimit"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwtSecret"),
			Audience:  v.GetString("auth.audience"),
		},
		Holidays: HolidaysConfig{
			Enabled:    v.GetBool("holidays.enabled"),
			BaseURL:    v.GetString("holidays.baseURL"),
			Country:    strings.ToUpper(v.GetString("holidays.country")),
			Timeout:    v.GetDuration("holidays.timeout"),
			RetryAfter: v.GetDuration("holidays.retryAfter"),
		},
		Email: EmailConfig{
			DefaultFrom:    v.GetString("email.defaultFrom"),
			SendgridApiKey: v.GetString("email.sendgridApiKey"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Classroom Curator")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.frontendBaseURL", "http://localhost:5173")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.requestBodyLimit", "1M")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "curator")
	v.SetDefault("database.user", "curator")
	v.SetDefault("database.password", "curator")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("auth.jwtSecret", "super-secret-jwt-token-with-at-least-32-characters-long")
	v.SetDefault("auth.audience", "authenticated")

	v.SetDefault("holidays.enabled", true)
	v.SetDefault("holidays.baseURL", "https://date.nager.at")
	v.SetDefault("holidays.country", "IN")
	v.SetDefault("holidays.timeout", 5*time.Second)
	v.SetDefault("holidays.retryAfter", time.Minute)

	v.SetDefault("email.defaultFrom", "Classroom Curator <noreply@localhost>")
	v.SetDefault("email.sendgridApiKey", "")
}
