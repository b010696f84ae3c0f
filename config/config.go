package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServicePort      string
	MetricsPort      string
	Environment      string
	PostgreSQLConfig PostgreSQLConfig
	MongoDBConfig    MongoDBConfig
	JWTSecret        string
	KafkaConfig      KafkaConfig
	TracingConfig    TracingConfig
	MpesaConfig      MpesaConfig
	CardGateway      string
	MidtransConfig   MidtransConfig
	SMTPConfig       SMTPConfig
	SweepConfig      SweepConfig
}

type PostgreSQLConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUsername string
	DBPassword string
}

type MongoDBConfig struct {
	DBHost string
	DBPort string
	DBName string
}

type KafkaConfig struct {
	BrokerAddress   string
	BrokerTopic     string
	BrokerPartition int
}

type TracingConfig struct {
	CollectorHost string
}

type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

type MidtransConfig struct {
	ServerKey string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Sender   string
	Password string
}

// SweepConfig controls the job that re-polls payments still pending after MinAge.
type SweepConfig struct {
	Interval time.Duration
	MinAge   time.Duration
}

func CreateNewConfig() *Config {
	godotenv.Load(".env")

	conf := Config{
		ServicePort: os.Getenv("SERVICE_PORT"),
		MetricsPort: os.Getenv("METRICS_PORT"),
		Environment: os.Getenv("ENVIRONMENT"),
		PostgreSQLConfig: PostgreSQLConfig{
			DBHost:     os.Getenv("DB_HOST"),
			DBName:     os.Getenv("DB_NAME"),
			DBPort:     os.Getenv("DB_PORT"),
			DBUsername: os.Getenv("DB_USERNAME"),
			DBPassword: os.Getenv("DB_PASSWORD"),
		},
		MongoDBConfig: MongoDBConfig{
			DBHost: os.Getenv("MONGODB_HOST"),
			DBPort: os.Getenv("MONGODB_PORT"),
			DBName: getEnvDefault("MONGODB_NAME", "adaze"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		KafkaConfig: KafkaConfig{
			BrokerAddress: os.Getenv("BROKER_ADDRESS"),
			BrokerTopic:   getEnvDefault("BROKER_TOPIC", "order-changes"),
		},
		TracingConfig: TracingConfig{
			CollectorHost: os.Getenv("COLLECTOR_HOST"),
		},
		MpesaConfig: MpesaConfig{
			BaseURL:        getEnvDefault("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			ShortCode:      os.Getenv("MPESA_SHORTCODE"),
			Passkey:        os.Getenv("MPESA_PASSKEY"),
			CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		},
		CardGateway: getEnvDefault("CARD_GATEWAY", "mock"),
		MidtransConfig: MidtransConfig{
			ServerKey: os.Getenv("MIDTRANS_SERVER_KEY"),
		},
		SMTPConfig: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Sender:   os.Getenv("SMTP_SENDER"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},
		SweepConfig: SweepConfig{
			Interval: getDurationDefault("PENDING_PAYMENT_SWEEP_INTERVAL", time.Minute),
			MinAge:   getDurationDefault("PENDING_PAYMENT_MIN_AGE", 2*time.Minute),
		},
	}

	brokerPartition, err := strconv.Atoi(os.Getenv("BROKER_PARTITION"))
	if err == nil {
		conf.KafkaConfig.BrokerPartition = brokerPartition
	}

	smtpPort, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err == nil {
		conf.SMTPConfig.Port = smtpPort
	}

	return &conf
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDurationDefault(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}
