package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BackendURL          string
	RequestTimeout      time.Duration
	StorageDriver       string
	StoragePath         string
	StorageNamespace    string
	RedisURL            string
	DatabaseURL         string
	MongoURL            string
	MongoDatabase       string
	CartSyncDebounce    time.Duration
	CartSyncRetries     int
	ProductFetchRetries int
	ProductFetchBackoff time.Duration
	Currency            string
	TaxRate             string
	LogLevel            string
	Debug               bool
	ServiceName         string
	Environment         string
	ServerHost          string
	ServerPort          string
	AccessKey           string
	AllowedOrigins      []string
	RateLimitRPS        float64
	RateLimitBurst      int
}

func LoadConfig() (*Config, error) {
	backendURL := strings.TrimRight(os.Getenv("BACKEND_URL"), "/")
	if backendURL == "" {
		return nil, errors.New("BACKEND_URL is required")
	}

	storageDriver := strings.ToLower(os.Getenv("STORAGE_DRIVER"))
	if storageDriver == "" {
		storageDriver = "file"
	}

	storagePath := os.Getenv("STORAGE_PATH")
	if storagePath == "" {
		storagePath = ".storefront"
	}

	storageNamespace := os.Getenv("STORAGE_NAMESPACE")
	if storageNamespace == "" {
		storageNamespace = "default"
	}

	redisURL := os.Getenv("REDIS_URL")
	if storageDriver == "redis" && redisURL == "" {
		return nil, errors.New("REDIS_URL is required for the redis storage driver")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if storageDriver == "postgres" && databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres storage driver")
	}

	mongoURL := os.Getenv("MONGO_URL")
	if storageDriver == "mongo" && mongoURL == "" {
		return nil, errors.New("MONGO_URL is required for the mongo storage driver")
	}

	mongoDatabase := os.Getenv("MONGO_DATABASE")
	if mongoDatabase == "" {
		mongoDatabase = "storefront"
	}

	currency := os.Getenv("CURRENCY")
	if currency == "" {
		currency = "₹"
	}

	taxRate := os.Getenv("TAX_RATE")
	if taxRate == "" {
		taxRate = "0.02"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	debug := os.Getenv("DEBUG")
	if debug == "" {
		debug = "false"
	}

	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "storefront"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "127.0.0.1"
	}

	// The process holds one shopper session, so anything reachable beyond
	// loopback must be keyed.
	accessKey := os.Getenv("ACCESS_KEY")
	if accessKey == "" && !isLoopback(serverHost) {
		return nil, errors.New("ACCESS_KEY is required when SERVER_HOST is not a loopback address")
	}

	allowedOrigins := []string{"*"}
	if ao := os.Getenv("ALLOWED_ORIGINS"); ao != "" {
		allowedOrigins = []string{}
		for _, origin := range strings.Split(ao, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	rateLimitRPS := 20.0
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rateLimitRPS = parsed
		}
	}

	return &Config{
		BackendURL:          backendURL,
		RequestTimeout:      durationEnv("REQUEST_TIMEOUT", 10*time.Second),
		StorageDriver:       storageDriver,
		StoragePath:         storagePath,
		StorageNamespace:    storageNamespace,
		RedisURL:            redisURL,
		DatabaseURL:         databaseURL,
		MongoURL:            mongoURL,
		MongoDatabase:       mongoDatabase,
		CartSyncDebounce:    durationEnv("CART_SYNC_DEBOUNCE", 500*time.Millisecond),
		CartSyncRetries:     intEnv("CART_SYNC_RETRIES", 3),
		ProductFetchRetries: intEnv("PRODUCT_FETCH_RETRIES", 3),
		ProductFetchBackoff: durationEnv("PRODUCT_FETCH_BACKOFF", time.Second),
		Currency:            currency,
		TaxRate:             taxRate,
		LogLevel:            logLevel,
		Debug:               debug == "true",
		ServiceName:         serviceName,
		Environment:         environment,
		ServerHost:          serverHost,
		ServerPort:          serverPort,
		AccessKey:           accessKey,
		AllowedOrigins:      allowedOrigins,
		RateLimitRPS:        rateLimitRPS,
		RateLimitBurst:      intEnv("RATE_LIMIT_BURST", 40),
	}, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return def
}

// durationEnv accepts Go duration strings ("750ms") or plain milliseconds.
func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
