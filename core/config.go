package core

import (
	"fmt"
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
	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		AppName         string
		Debug           bool
		TestMode        bool
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string

		defaultFromEmail string

		Server     ServerConfig
		Database   DatabaseConfig
		Generation GenerationConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	GenerationConfig struct {
		OpenAIBaseURL    string
		OpenAIApiKey     string
		Model            string
		Temperature      float64
		Timeout          time.Duration
		FetchTimeout     time.Duration
		FetchPrivateHost bool // lets source urls reach loopback and private networks (local dev only)
		MaxSourceChars   int
		PromptAuditChars int
		MaxUploadBytes   int64
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.defaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the env name, e.g. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "IncludEd")
	v.SetDefault("secretKey", "7t&wq%n!f2y0v#m3@zq=kd1p9$x^6r8c)ub4(h+j5l*e0g-sa")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "IncludEd <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "included")
	v.SetDefault("database.user", "included")
	v.SetDefault("database.password", "included")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "included.db")

	v.SetDefault("generation.openAIBaseURL", "https://api.openai.com/v1")
	v.SetDefault("generation.openAIApiKey", "")
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.timeout", 90*time.Second)
	v.SetDefault("generation.fetchTimeout", 20*time.Second)
	v.SetDefault("generation.fetchPrivateHost", false)
	v.SetDefault("generation.maxSourceChars", 8000)
	v.SetDefault("generation.promptAuditChars", 1000)
	v.SetDefault("generation.maxUploadBytes", 10<<20)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Generation: GenerationConfig{
			OpenAIBaseURL:    strings.TrimRight(v.GetString("generation.openAIBaseURL"), "/"),
			OpenAIApiKey:     v.GetString("generation.openAIApiKey"),
			Model:            v.GetString("generation.model"),
			Temperature:      v.GetFloat64("generation.temperature"),
			Timeout:          v.GetDuration("generation.timeout"),
			FetchTimeout:     v.GetDuration("generation.fetchTimeout"),
			FetchPrivateHost: v.GetBool("generation.fetchPrivateHost"),
			MaxSourceChars:   v.GetInt("generation.maxSourceChars"),
			PromptAuditChars: v.GetInt("generation.promptAuditChars"),
			MaxUploadBytes:   v.GetInt64("generation.maxUploadBytes"),
		},
	}
}

// String hides secrets, for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf(
		"env=%s build=%s debug=%t db=%s llm=%s(%s) maxSourceChars=%d",
		c.Env, c.Build, c.Debug, c.Database.Engine, c.Generation.Model, c.Generation.OpenAIBaseURL, c.Generation.MaxSourceChars,
	)
}
