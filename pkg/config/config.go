package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTPConfig
	Zones    ZonesConfig
	Engine   EngineConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Actuator ActuatorConfig
	SMTP     SMTPConfig
}

type HTTPConfig struct {
	Port int
}

type ZonesConfig struct {
	// Source is "file" or "postgres"
	Source        string
	MapFile       string
	DefaultRadius float64
}

type EngineConfig struct {
	MatchInterval   time.Duration
	DensityInterval time.Duration
	StaleAfter      time.Duration
	AlertCooldown   time.Duration
	DensityStart    float64
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers        []string
	TopicPositions string
	TopicAlerts    string
	NumPartitions  int
}

type ActuatorConfig struct {
	Addr         string
	WriteTimeout time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		HTTP: HTTPConfig{
			Port: getEnvAsInt("HTTP_PORT", 5000),
		},
		Zones: ZonesConfig{
			Source:        getEnv("ZONES_SOURCE", "file"),
			MapFile:       getEnv("ZONES_MAP_FILE", "data/campus_map.json"),
			DefaultRadius: getEnvAsFloat("ZONES_DEFAULT_RADIUS", 30),
		},
		Engine: EngineConfig{
			MatchInterval:   getEnvAsDuration("ENGINE_MATCH_INTERVAL", 5*time.Second),
			DensityInterval: getEnvAsDuration("ENGINE_DENSITY_INTERVAL", 3*time.Second),
			StaleAfter:      getEnvAsDuration("ENGINE_STALE_AFTER", 2*time.Minute),
			AlertCooldown:   getEnvAsDuration("ENGINE_ALERT_COOLDOWN", 15*time.Second),
			DensityStart:    getEnvAsFloat("ENGINE_DENSITY_START", 42),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "crowdsafe_user"),
			Password: getEnv("DB_PASSWORD", "crowdsafe_pass"),
			DBName:   getEnv("DB_NAME", "crowdsafe_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicPositions: getEnv("KAFKA_TOPIC_POSITIONS", "crowdsafe.positions.raw"),
			TopicAlerts:    getEnv("KAFKA_TOPIC_ALERTS", "crowdsafe.alerts"),
			NumPartitions:  getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
		},
		Actuator: ActuatorConfig{
			Addr:         getEnv("ACTUATOR_ADDR", ""),
			WriteTimeout: getEnvAsDuration("ACTUATOR_WRITE_TIMEOUT", 2*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "crowdsafe-server@example.com"),
			To:       getEnv("SMTP_TO", "security-ops@example.com"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
