package config

import (
	"time"

	"github.com/Ramsey-B/laurel/pkg/matching"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"laurel-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	TLSMinVersion                 string   `env:"HTTP_SERVER_TLS_MIN_VERSION" env-default:"TLS_1_2"`
	TLSMaxVersion                 string   `env:"HTTP_SERVER_TLS_MAX_VERSION" env-default:"TLS_1_2"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,PATCH,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"laurel"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseReconnectRetryCount   int           `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Tracing
	TracingEnabled      bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingOTLPEndpoint string `env:"TRACING_OTLP_ENDPOINT" env-default:"localhost:4317"`
	TracingOTLPProtocol string `env:"TRACING_OTLP_PROTOCOL" env-default:"grpc"`
	TracingInsecure     bool   `env:"TRACING_INSECURE" env-default:"true"`

	// Graph Database (Memgraph)
	GraphDBEnabled  bool   `env:"GRAPH_DB_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka Consumer (search service output)
	KafkaBrokers            []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaSearchResultsTopic string   `env:"KAFKA_SEARCH_RESULTS_TOPIC" env-default:"search-results"`
	KafkaConsumerGroup      string   `env:"KAFKA_CONSUMER_GROUP" env-default:"laurel-consumer"`
	KafkaConsumerEnabled    bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer (review lifecycle events)
	KafkaReviewEventsTopic string `env:"KAFKA_REVIEW_EVENTS_TOPIC" env-default:"review-events"`
	KafkaProducerEnabled   bool   `env:"KAFKA_PRODUCER_ENABLED" env-default:"true"`
	KafkaBatchSize         int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout      int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks      int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression       string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Scoring
	AutoAcceptThreshold     int     `env:"AUTO_ACCEPT_THRESHOLD" env-default:"95"`
	HighConfidenceThreshold int     `env:"HIGH_CONFIDENCE_THRESHOLD" env-default:"80"`
	LowConfidenceThreshold  int     `env:"LOW_CONFIDENCE_THRESHOLD" env-default:"50"`
	NameWeight              float64 `env:"NAME_WEIGHT" env-default:"0.5"`
	DateWeight              float64 `env:"DATE_WEIGHT" env-default:"0.3"`
	PropertyWeight          float64 `env:"PROPERTY_WEIGHT" env-default:"0.2"`
	NameFuzzyThreshold      int     `env:"NAME_FUZZY_THRESHOLD" env-default:"70"`
	DateToleranceDays       int     `env:"DATE_TOLERANCE_DAYS" env-default:"3"`
}

// MatchingSettings builds the scoring engine settings from the environment,
// keeping the fixed per-field scores at their defaults.
func (c Config) MatchingSettings() matching.Settings {
	settings := matching.DefaultSettings()
	settings.AutoAcceptThreshold = c.AutoAcceptThreshold
	settings.HighConfidenceThreshold = c.HighConfidenceThreshold
	settings.LowConfidenceThreshold = c.LowConfidenceThreshold
	settings.NameWeight = c.NameWeight
	settings.DateWeight = c.DateWeight
	settings.PropertyWeight = c.PropertyWeight
	settings.NameFuzzyThreshold = c.NameFuzzyThreshold
	settings.DateToleranceDays = c.DateToleranceDays
	return settings
}
