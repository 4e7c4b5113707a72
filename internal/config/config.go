package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv                 string
	APIBaseURL             string
	ConnectTimeoutSeconds  int
	RequestTimeoutSeconds  int
	RequestsPerSecond      float64
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	NoticeChannel          string
	RefreshIntervalSeconds int
	WorkerCount            int
	Username               string
	Password               string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	connectTimeout, err := strconv.Atoi(getEnv("CONNECT_TIMEOUT_SECONDS", "30"))
	if err != nil || connectTimeout < 1 {
		connectTimeout = 30
	}
	requestTimeout, err := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "0"))
	if err != nil || requestTimeout < 0 {
		requestTimeout = 0
	}
	rps, err := strconv.ParseFloat(getEnv("REQUESTS_PER_SECOND", "0"), 64)
	if err != nil || rps < 0 {
		rps = 0
	}
	refresh, err := strconv.Atoi(getEnv("REFRESH_INTERVAL_SECONDS", "60"))
	if err != nil || refresh < 1 {
		refresh = 60
	}
	workers, err := strconv.Atoi(getEnv("WORKER_COUNT", "4"))
	if err != nil || workers < 1 {
		workers = 4
	}

	return Config{
		AppEnv:                 getEnv("APP_ENV", "development"),
		APIBaseURL:             strings.TrimRight(getEnv("API_BASE_URL", "http://127.0.0.1:8080"), "/"),
		ConnectTimeoutSeconds:  connectTimeout,
		RequestTimeoutSeconds:  requestTimeout,
		RequestsPerSecond:      rps,
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		NoticeChannel:          getEnv("NOTICE_CHANNEL", "kasirinaja:notices"),
		RefreshIntervalSeconds: refresh,
		WorkerCount:            workers,
		Username:               strings.TrimSpace(os.Getenv("POS_USERNAME")),
		Password:               os.Getenv("POS_PASSWORD"),
	}
}

func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// Validate rejects a base URL the client could not target.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https, got %q", c.APIBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("API_BASE_URL must include a host")
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("API_BASE_URL must be an origin without a path")
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("POS_USERNAME and POS_PASSWORD must be set together")
	}
	return nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
