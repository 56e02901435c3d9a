package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`

	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTExpiry      time.Duration `mapstructure:"jwt_expiry"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	ResetTokenTTL  time.Duration `mapstructure:"reset_token_ttl"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`

	SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
	EmailFromName  string `mapstructure:"email_from_name"`
	EmailFromAddr  string `mapstructure:"email_from_addr"`
	FrontendURL    string `mapstructure:"frontend_url"`

	SuperuserEmail    string `mapstructure:"superuser_email"`
	SuperuserPassword string `mapstructure:"superuser_password"`
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration from the environment. Every key can be supplied as an
// env var (MONGO_URI, JWT_SECRET, ...); defaults are suitable for local development.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "therapy")
	v.SetDefault("jwt_expiry", 7*24*time.Hour)
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("reset_token_ttl", 10*time.Minute)
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("email_from_name", "DOT Therapy")
	v.SetDefault("email_from_addr", "no-reply@dottherapy.app")
	v.SetDefault("frontend_url", "http://localhost:3000")

	// viper only picks up env vars for keys it knows about
	for _, key := range []string{
		"env", "port", "mongo_uri", "mongo_database", "jwt_secret", "jwt_expiry",
		"bcrypt_cost", "reset_token_ttl", "allowed_origins", "sendgrid_api_key",
		"email_from_name", "email_from_addr", "frontend_url",
		"superuser_email", "superuser_password",
	} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
