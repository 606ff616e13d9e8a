package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
	AI struct {
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		MaxImagePx  int     `yaml:"max_image_px"`
		Timeout     string  `yaml:"timeout"`
	} `yaml:"ai"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`
}

// Load reads YAML config from path, then applies QUIZ_* environment overrides.
// A missing file is not an error so the service can run purely from env.
// Variables from a .env file in the working directory are loaded first;
// real environment variables win over it.
func Load(path string) (Config, error) {
	cfg := defaults()
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

func defaults() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Quiz.CacheTTL = "10m"
	cfg.AI.Model = "gemini-2.5-flash"
	cfg.AI.Temperature = 0.2
	cfg.AI.MaxImagePx = 2048
	cfg.AI.Timeout = "120s"
	cfg.Auth.Issuer = "classroom-quiz"
	return cfg
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Server.Port)
	str("QUIZ_LOG_LEVEL", &cfg.Log.Level)
	str("QUIZ_REDIS_ADDR", &cfg.Redis.Addr)
	str("QUIZ_REDIS_PASSWORD", &cfg.Redis.Password)
	str("QUIZ_POSTGRES_URL", &cfg.Postgres.URL)
	str("QUIZ_AI_API_KEY", &cfg.AI.APIKey)
	str("QUIZ_AI_MODEL", &cfg.AI.Model)
	str("QUIZ_JWT_SECRET", &cfg.Auth.JWTSecret)
	if v, ok := lookup("QUIZ_CORS_ORIGINS"); ok && v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v, ok := lookup("QUIZ_REDIS_DB"); ok {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
