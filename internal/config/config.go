package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	OTLPEndpoint       string
	OTLPProtocol       string
	TraceSamplingRatio float64
	SecureLogPath      string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	NATS       NATSConfig
	Accounting AccountingConfig
}

// NATSConfig names the subjects exchanged with the disbursement and
// accounting systems.
type NATSConfig struct {
	URL                string
	ClientName         string
	OrderSubject       string
	ReceiptSubject     string
	ClaimSubject       string
	ClaimStatusSubject string
	QueueGroup         string
}

type AccountingConfig struct {
	BaseURL string
	Timeout time.Duration
	// ResponsibleUnit is the national accounting unit stamped on every
	// repayment vedtak. It is never derived from the case's own unit.
	ResponsibleUnit string
}

const DefaultResponsibleUnit = "8020"

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:            getenv("APP_SERVICE", "okonomi"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		NodeID:             int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		OTLPEndpoint:       getenv("OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol:       strings.ToLower(strings.TrimSpace(getenv("OTLP_PROTOCOL", "grpc"))),
		TraceSamplingRatio: getenvRatio("OTEL_SAMPLING_RATIO", 0.1),
		SecureLogPath:      getenv("SECURE_LOG_PATH", "stderr"),
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "okonomi"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RedisAddr:          strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		RedisDB:            getenvInt("REDIS_DB", 0),
		LockTTL:            getenvDuration("LOCK_TTL", 30*time.Second),
		NATS: NATSConfig{
			URL:                strings.TrimSpace(getenv("NATS_URL", "")),
			ClientName:         getenv("NATS_CLIENT_NAME", "okonomi"),
			OrderSubject:       getenv("NATS_ORDER_SUBJECT", "utbetaling.oppdrag"),
			ReceiptSubject:     getenv("NATS_RECEIPT_SUBJECT", "utbetaling.kvittering"),
			ClaimSubject:       getenv("NATS_CLAIM_SUBJECT", "tilbakekreving.kravgrunnlag"),
			ClaimStatusSubject: getenv("NATS_CLAIM_STATUS_SUBJECT", "tilbakekreving.kravstatus"),
			QueueGroup:         getenv("NATS_QUEUE_GROUP", "okonomi"),
		},
		Accounting: AccountingConfig{
			BaseURL:         strings.TrimRight(strings.TrimSpace(getenv("ACCOUNTING_BASE_URL", "http://localhost:8090")), "/"),
			Timeout:         getenvDuration("ACCOUNTING_TIMEOUT", 30*time.Second),
			ResponsibleUnit: strings.TrimSpace(getenv("ACCOUNTING_RESPONSIBLE_UNIT", DefaultResponsibleUnit)),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewClassCodeConfigHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// getenvRatio reads a sampling ratio; values outside [0, 1] fall back to def.
func getenvRatio(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return def
	}
	return parsed
}
