package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
	BackendMongo  = "mongo"

	SinkLog   = "log"
	SinkKafka = "kafka"
)

type Env struct {
	AppAddr string
	GinMode string

	StoreBackend      string
	StoreTimeout      time.Duration
	MySQLDSN          string
	MongoURI          string
	MongoDB           string
	MongoTransactions bool
	SeedDemo          bool

	NotifySink    string
	NotifyWorkers int
	NotifyBuffer  int
	KafkaBrokers  []string
	KafkaTopic    string

	JWTSecret   string
	JWTTTL      time.Duration
	AdminEmails []string

	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string
}

// LoadEnv reads .env (when present) and then the process environment.
func LoadEnv() Env {
	_ = godotenv.Load()

	return Env{
		AppAddr: getEnv("APP_ADDR", ":5000"),
		GinMode: getEnv("GIN_MODE", ""),

		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		StoreTimeout:      getDuration("STORE_TIMEOUT", 5*time.Second),
		MySQLDSN:          getEnv("MYSQL_DSN", "root:@tcp(127.0.0.1:3306)/bus_yatri?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "bus-booking-db"),
		MongoTransactions: getBool("MONGO_TRANSACTIONS", false),
		SeedDemo:          getBool("SEED_DEMO", false),

		NotifySink:    strings.ToLower(getEnv("NOTIFY_SINK", SinkLog)),
		NotifyWorkers: getInt("NOTIFY_WORKERS", 2),
		NotifyBuffer:  getInt("NOTIFY_BUFFER", 64),
		KafkaBrokers:  getList("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "booking.confirmed"),

		JWTSecret:   getEnv("JWT_SECRET", "SECRET_KEY"),
		JWTTTL:      getDuration("JWT_TTL", time.Hour),
		AdminEmails: getList("ADMIN_EMAILS", ""),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173,http://localhost:3000"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getList(key, def string) []string {
	out := []string{}
	for _, p := range strings.Split(getEnv(key, def), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
